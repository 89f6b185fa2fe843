package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/welldanyogia/webrana-msgqueue/internal/app"
	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/database"
	"github.com/welldanyogia/webrana-msgqueue/internal/destination"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
)

func setupEnv(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("QUEUE_CONFIG_FILE", "")
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", database.SQLitePrefix+filepath.Join(dir, "queue.db"))
	t.Setenv("TEMP_DIRECTORY", filepath.Join(dir, "attachments"))
	t.Setenv("ENABLED_CHANNELS", "file")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REDIS_ADDR", "")
	return dir
}

func seedFileMessage(t *testing.T, target, body string) uint {
	cfg, err := config.Load()
	require.NoError(t, err)

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	msg, err := a.Queue.NewMessage(models.ChannelFile, destination.Values(target), "", body)
	require.NoError(t, err)
	require.NoError(t, msg.Save(context.Background(), false))
	return msg.ID()
}

func TestRun_DeliversPendingMessages(t *testing.T) {
	dir := setupEnv(t)
	target := filepath.Join(dir, "out.txt")
	seedFileMessage(t, target, "hello")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, &stdout, &stderr)

	assert.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "# messages found: 1")
	assert.Contains(t, stdout.String(), "MSG #1")

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestRun_QuietPrintsNothing(t *testing.T) {
	setupEnv(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--quiet"}, &stdout, &stderr)

	assert.Equal(t, exitOK, code)
	assert.Empty(t, stdout.String())
}

func TestRun_TargetsOneMessage(t *testing.T) {
	dir := setupEnv(t)
	first := filepath.Join(dir, "first.txt")
	second := filepath.Join(dir, "second.txt")
	seedFileMessage(t, first, "one")
	id := seedFileMessage(t, second, "two")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--id", uintString(id)}, &stdout, &stderr)

	assert.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "# messages found: 1")
	assert.FileExists(t, second)
	assert.NoFileExists(t, first)
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--help"}, &stdout, &stderr)

	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr.String(), "-max-attempts")
}

func TestRun_BadFlags(t *testing.T) {
	tests := [][]string{
		{"--no-such-flag"},
		{"--max-attempts", "-2"},
		{"extra"},
	}
	for _, args := range tests {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, exitFailure, run(context.Background(), args, &stdout, &stderr), args)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("ENABLED_CHANNELS", "email,fax")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), nil, &stdout, &stderr)

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr.String(), "load config")
}

func TestRun_IntervalStopsWithContext(t *testing.T) {
	setupEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"--interval", "1h", "--quiet"}, &stdout, &stderr)

	assert.Equal(t, exitOK, code)
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
