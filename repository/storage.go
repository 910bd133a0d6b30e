package repository

import "context"

// KeyValueStore is the durable local storage the session manager caches into.
// Get returns domain.ErrRecordNotFound when the key is absent and Remove
// succeeds for keys that do not exist.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
