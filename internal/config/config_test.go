package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://acreage.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://acreage.supabase.co", cfg.Provider.URL)
	assert.Equal(t, "127.0.0.1:8787", cfg.Address())
	assert.Equal(t, StorageBolt, cfg.Storage.Driver)
	assert.Equal(t, "acreage.auth.session", cfg.Storage.CacheKey)

	assert.Equal(t, 3, cfg.Retry.AuthAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.AuthDelay)
	assert.Equal(t, 15*time.Second, cfg.Retry.AuthTimeout)
	assert.Equal(t, 2, cfg.Retry.SignOutAttempts)
	assert.Equal(t, time.Second, cfg.Retry.SignOutDelay)
	assert.Equal(t, 8*time.Second, cfg.Retry.SignOutTimeout)
	assert.False(t, cfg.Retry.SkipRejected)

	assert.Equal(t, 30*time.Second, cfg.Provider.RefreshInterval)
	assert.Equal(t, 90*time.Second, cfg.Provider.RefreshMargin)
	assert.Equal(t, 60*time.Second, cfg.Context.RequestTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://acreage.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("STORAGE_DRIVER", "Redis")
	t.Setenv("AUTH_RETRY_ATTEMPTS", "5")
	t.Setenv("AUTH_RETRY_DELAY", "500ms")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "30")
	t.Setenv("AUTH_RETRY_SKIP_REJECTED", "true")
	t.Setenv("SERVER_ENABLE_METRICS", "yes-please")
	t.Setenv("REDIS_DB", "two")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageRedis, cfg.Storage.Driver)
	assert.Equal(t, 5, cfg.Retry.AuthAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.AuthDelay)
	assert.Equal(t, 30*time.Second, cfg.Context.ShutdownTimeout)
	assert.True(t, cfg.Retry.SkipRejected)
	assert.False(t, cfg.HTTP.EnableMetrics, "unparsable values fall back")
	assert.Equal(t, 0, cfg.Storage.Redis.DB)
}

func TestValidate(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")
	t.Setenv("STORAGE_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_URL")
	assert.Contains(t, err.Error(), "SUPABASE_ANON_KEY")
	assert.Contains(t, err.Error(), `unknown STORAGE_DRIVER "sqlite"`)
}
