package bolt

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/repository"
)

type kvRepository struct {
	db     *bbolt.DB
	bucket []byte
}

// NewKeyValueRepository stores values in one bucket of an opened Bolt database.
func NewKeyValueRepository(db *bbolt.DB, bucket string) repository.KeyValueStore {
	if bucket == "" {
		bucket = "local_storage"
	}
	return &kvRepository{
		db:     db,
		bucket: []byte(bucket),
	}
}

func (r *kvRepository) Get(ctx context.Context, key string) (string, error) {
	if err := r.ready(ctx); err != nil {
		return "", err
	}

	var value []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return bbolt.ErrBucketNotFound
		}
		if v := b.Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", domain.ErrRecordNotFound
	}
	return string(value), nil
}

func (r *kvRepository) Set(ctx context.Context, key, value string) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(r.bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	})
}

func (r *kvRepository) Remove(ctx context.Context, key string) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (r *kvRepository) ready(ctx context.Context) error {
	if r == nil || r.db == nil {
		return bbolt.ErrDatabaseNotOpen
	}
	return ctx.Err()
}
