package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/welldanyogia/webrana-msgqueue/internal/config"
	"github.com/welldanyogia/webrana-msgqueue/internal/database"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.DatabaseURL = database.SQLitePrefix + ":memory:"
	cfg.TempDirectory = t.TempDir()
	cfg.LogLevel = "error"
	return cfg
}

func TestNew_WithoutRedis(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Queue)
	assert.Nil(t, a.Deliveries)
	assert.Nil(t, a.Redis)

	n, err := a.Queue.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Deliveries)
	assert.NotNil(t, a.Redis)
}

func TestNew_UnreachableRedisDisablesDeliveryLog(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	mr.Close()

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Deliveries)
}

func TestNew_RegistersEnabledChannels(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnabledChannels = []string{"sms", "file"}

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.Registry.Registered(models.ChannelSMS))
	assert.True(t, a.Registry.Registered(models.ChannelFile))
	assert.False(t, a.Registry.Registered(models.ChannelEmail))
}

func TestNew_UnknownChannel(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnabledChannels = []string{"email", "fax"}

	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}
