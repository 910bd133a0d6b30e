package redis

import (
	"context"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/repository"
)

type kvRepository struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewKeyValueRepository creates a Redis-backed local storage. A zero ttl keeps
// values until they are removed.
func NewKeyValueRepository(client *redislib.Client, prefix string, ttl time.Duration) repository.KeyValueStore {
	if ttl < 0 {
		ttl = 0
	}
	return &kvRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *kvRepository) Get(ctx context.Context, key string) (string, error) {
	result, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", domain.ErrRecordNotFound
		}
		return "", err
	}
	return result, nil
}

func (r *kvRepository) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return domain.ErrInvalidPayload
	}
	return r.client.Set(ctx, r.key(key), value, r.ttl).Err()
}

func (r *kvRepository) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *kvRepository) key(key string) string {
	return r.prefix + key
}
