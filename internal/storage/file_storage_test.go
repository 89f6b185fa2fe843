package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestStageList_MissingSource(t *testing.T) {
	var l StageList
	err := l.Stage(filepath.Join(t.TempDir(), "missing.txt"), "", "")
	assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)
	assert.Equal(t, 0, l.Len())
}

func TestStageList_IsIdempotentPerPath(t *testing.T) {
	src := writeFile(t, t.TempDir(), "a.txt", "hello")

	var l StageList
	require.NoError(t, l.Stage(src, "first.txt", ""))
	require.NoError(t, l.Stage(src, "second.txt", "text/csv"))

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "first.txt", entries[0].Filename)
}

func TestMaterialize_CopiesIntoMessageDirectory(t *testing.T) {
	srcDir := t.TempDir()
	root := filepath.Join(t.TempDir(), "queue")
	store := NewLocalStore(root, nil)

	a := writeFile(t, srcDir, "report.txt", "plain text body")
	b := writeFile(t, srcDir, "data.bin", "whatever")

	atts, err := store.Materialize([]Staged{
		{Source: a},
		{Source: b, Filename: "renamed.csv", MimeType: "text/csv"},
	})
	require.NoError(t, err)
	require.Len(t, atts, 2)

	assert.Equal(t, "report.txt", atts[0].Filename)
	assert.True(t, strings.HasPrefix(atts[0].Type, "text/plain"))
	assert.Equal(t, "renamed.csv", atts[1].Filename)
	assert.Equal(t, "text/csv", atts[1].Type)

	dir := atts.Dir()
	assert.Equal(t, dir, filepath.Dir(atts[1].Path))
	assert.Equal(t, root, filepath.Dir(dir))

	got, err := os.ReadFile(atts[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "plain text body", string(got))
}

func TestMaterialize_SkipsVanishedSource(t *testing.T) {
	srcDir := t.TempDir()
	store := NewLocalStore(t.TempDir(), nil)

	a := writeFile(t, srcDir, "a.txt", "a")
	b := writeFile(t, srcDir, "b.txt", "b")
	require.NoError(t, os.Remove(a))

	atts, err := store.Materialize([]Staged{{Source: a}, {Source: b}})
	assert.Error(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, "b.txt", atts[0].Filename)
}

func TestMaterialize_NothingStaged(t *testing.T) {
	root := filepath.Join(t.TempDir(), "never")
	atts, err := NewLocalStore(root, nil).Materialize(nil)
	require.NoError(t, err)
	assert.Empty(t, atts)

	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}

func TestMaterialize_RootNotWritable(t *testing.T) {
	blocker := writeFile(t, t.TempDir(), "file", "x")
	src := writeFile(t, t.TempDir(), "a.txt", "a")

	_, err := NewLocalStore(filepath.Join(blocker, "root"), nil).Materialize([]Staged{{Source: src}})
	assert.ErrorIs(t, err, apperrors.ErrTempDirNotWritable)
}

func TestPurge_RemovesFilesAndDirectory(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, nil)
	src := writeFile(t, t.TempDir(), "a.txt", "a")

	atts, err := store.Materialize([]Staged{{Source: src}, {Source: src, Filename: "copy.txt"}})
	require.NoError(t, err)
	dir := atts.Dir()

	require.NoError(t, store.Purge(atts))

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(root)
	assert.NoError(t, err)
}

func TestPurge_NoAttachmentsIsNoop(t *testing.T) {
	assert.NoError(t, NewLocalStore(t.TempDir(), nil).Purge(nil))
}

func TestPurge_RefusesDirectoriesOutsideRoot(t *testing.T) {
	outside := t.TempDir()
	victim := writeFile(t, outside, "keep.txt", "keep")

	err := NewLocalStore(t.TempDir(), nil).Purge(models.Attachments{{Filename: "keep.txt", Path: victim}})
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = os.Stat(victim)
	assert.NoError(t, err)
}

func TestMaterialize_SameFilenameGetsSuffix(t *testing.T) {
	store := NewLocalStore(t.TempDir(), nil)
	a := writeFile(t, t.TempDir(), "x.txt", "first")
	b := writeFile(t, t.TempDir(), "x.txt", "second")

	atts, err := store.Materialize([]Staged{{Source: a}, {Source: b}, {Source: b, Filename: "x.txt"}})
	require.NoError(t, err)
	require.Len(t, atts, 3)

	assert.Equal(t, "x.txt", atts[0].Filename)
	assert.Equal(t, "x-1.txt", atts[1].Filename)
	assert.Equal(t, "x-2.txt", atts[2].Filename)
	assert.NotEqual(t, atts[0].Path, atts[1].Path)

	got, err := os.ReadFile(atts[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
	got, err = os.ReadFile(atts[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestResolveSource(t *testing.T) {
	root := t.TempDir()
	inside := writeFile(t, root, "report.txt", "ok")
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))
	outside := writeFile(t, t.TempDir(), "secret.txt", "no")
	link := filepath.Join(root, "link.txt")
	require.NoError(t, os.Symlink(outside, link))

	got, err := ResolveSource(root, inside)
	require.NoError(t, err)
	assert.Equal(t, "report.txt", filepath.Base(got))

	tests := []struct {
		name   string
		root   string
		source string
	}{
		{"outside root", root, outside},
		{"system file", root, "/etc/passwd"},
		{"dot dot escape", root, filepath.Join(root, "..", filepath.Base(filepath.Dir(outside)), "secret.txt")},
		{"symlink escape", root, link},
		{"directory", root, filepath.Join(root, "sub")},
		{"missing", root, filepath.Join(root, "missing.txt")},
		{"root itself", root, root},
		{"no root configured", "", inside},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveSource(tt.root, tt.source)
			assert.ErrorIs(t, err, apperrors.ErrSourceNotFound)
		})
	}
}
