package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/acreage/internal/config"
	boltInfra "github.com/fastygo/acreage/internal/infrastructure/bolt"
	redisInfra "github.com/fastygo/acreage/internal/infrastructure/redis"
	"github.com/fastygo/acreage/internal/services/lifecycle"
	"github.com/fastygo/acreage/repository"
	boltRepo "github.com/fastygo/acreage/repository/bolt"
	"github.com/fastygo/acreage/repository/memory"
	redisRepo "github.com/fastygo/acreage/repository/redis"
)

// OpenStorage opens the local storage selected by cfg.Driver and registers
// its close hook.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, lc *lifecycle.Manager, logger *zap.Logger) (repository.KeyValueStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case config.StorageBolt:
		db, err := boltInfra.Open(cfg.BoltPath, cfg.BoltBucket)
		if err != nil {
			return nil, fmt.Errorf("open bolt storage %s: %w", cfg.BoltPath, err)
		}
		lc.Register("storage", func(context.Context) error {
			return db.Close()
		})
		logger.Info("local storage ready", zap.String("driver", cfg.Driver), zap.String("path", cfg.BoltPath))
		return boltRepo.NewKeyValueRepository(db, cfg.BoltBucket), nil

	case config.StorageRedis:
		client, err := redisInfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis storage: %w", err)
		}
		lc.Register("storage", func(context.Context) error {
			return client.Close()
		})
		logger.Info("local storage ready", zap.String("driver", cfg.Driver), zap.String("prefix", cfg.Redis.Prefix))
		return redisRepo.NewKeyValueRepository(client, cfg.Redis.Prefix, 0), nil

	case config.StorageMemory:
		logger.Warn("using in-memory storage, sessions will not survive a restart")
		return memory.NewKeyValueRepository(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
