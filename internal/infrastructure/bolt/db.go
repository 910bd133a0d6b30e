package bolt

import (
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Open initializes the BoltDB file backing local storage and ensures bucket exists.
// The file lock means only one process can own the store at a time.
func Open(path string, bucket string) (*bbolt.DB, error) {
	if bucket == "" {
		bucket = "local_storage"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
