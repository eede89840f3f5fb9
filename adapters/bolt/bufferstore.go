// Package bolt persists the random buffer in a bbolt key-value file.
package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/artpar/qrng/ports"
	bolt "go.etcd.io/bbolt"
)

// BucketName is the bucket holding buffer snapshots.
const BucketName = "qrng_buffers"

// BufferStore implements ports.BufferStore on top of bbolt.
type BufferStore struct {
	client *bolt.DB
}

// Open opens (creating if needed) the bolt file at path.
func Open(path string) (*BufferStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BufferStore{client: db}, nil
}

// Load retrieves the value stored under key.
func (s *BufferStore) Load(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var (
		value string
		found bool
	)
	err := s.client.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketName)).Get([]byte(key))
		if v != nil {
			// v is only valid inside the transaction.
			value = string(v)
			found = true
		}
		return nil
	})
	return value, found, err
}

// Save stores or replaces the value under key.
func (s *BufferStore) Save(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketName)).Put([]byte(key), []byte(value))
	})
}

// Close closes the bolt file.
func (s *BufferStore) Close() error {
	return s.client.Close()
}

var _ ports.BufferStore = (*BufferStore)(nil)
