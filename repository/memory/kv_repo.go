package memory

import (
	"context"
	"sync"

	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/repository"
)

// KeyValueRepository keeps values in process memory. Nothing survives a restart.
type KeyValueRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewKeyValueRepository() *KeyValueRepository {
	return &KeyValueRepository{values: make(map[string]string)}
}

func (r *KeyValueRepository) Get(_ context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	if !ok {
		return "", domain.ErrRecordNotFound
	}
	return v, nil
}

func (r *KeyValueRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *KeyValueRepository) Remove(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
	return nil
}

// Len returns the number of stored keys.
func (r *KeyValueRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}

var _ repository.KeyValueStore = (*KeyValueRepository)(nil)
