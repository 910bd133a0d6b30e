package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/acreage/internal/config"
	"github.com/fastygo/acreage/internal/services/lifecycle"
)

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("bolt", func(t *testing.T) {
		lc := lifecycle.New(time.Second, nil)
		store, err := OpenStorage(ctx, config.StorageConfig{
			Driver:     config.StorageBolt,
			BoltPath:   filepath.Join(t.TempDir(), "session.db"),
			BoltBucket: "local_storage",
		}, lc, nil)
		require.NoError(t, err)

		require.NoError(t, store.Set(ctx, "k", "v"))
		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)

		require.NoError(t, lc.Shutdown(ctx))
		_, err = store.Get(ctx, "k")
		assert.Error(t, err, "store is closed by the lifecycle hook")
	})

	t.Run("memory", func(t *testing.T) {
		store, err := OpenStorage(ctx, config.StorageConfig{Driver: config.StorageMemory}, lifecycle.New(time.Second, nil), nil)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, "k", "v"))
	})

	t.Run("redis unreachable", func(t *testing.T) {
		_, err := OpenStorage(ctx, config.StorageConfig{
			Driver: config.StorageRedis,
			Redis:  config.RedisConfig{URL: "redis://127.0.0.1:1/0"},
		}, lifecycle.New(time.Second, nil), nil)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := OpenStorage(ctx, config.StorageConfig{Driver: "sqlite"}, lifecycle.New(time.Second, nil), nil)
		assert.Error(t, err)
	})
}
