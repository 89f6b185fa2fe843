package handler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
)

func TestFileHandler_Send(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(out, []byte("old"), 0644))

	h, err := NewFileHandler(config.FileConfig{})
	require.NoError(t, err)

	dest := models.Destinations{{Address: out}, {Address: filepath.Join(dir, "missing", "out.txt")}}
	sent, err := h.Send(context.Background(), dest, "new", "", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{dest[1].Address}, h.Failed().Addresses())

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestFileHandler_Append(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.txt")
	h, err := NewFileHandler(config.FileConfig{Append: true})
	require.NoError(t, err)

	for _, body := range []string{"one\n", "two\n"} {
		_, err := h.Send(context.Background(), models.Destinations{{Address: out}}, body, "", nil)
		require.NoError(t, err)
	}

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(content))
}
