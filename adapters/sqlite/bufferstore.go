package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artpar/qrng/ports"
)

// BufferStore implements ports.BufferStore using SQLite.
type BufferStore struct {
	db *DB
}

// NewBufferStore creates a new buffer store.
func NewBufferStore(db *DB) *BufferStore {
	return &BufferStore{db: db}
}

// Load retrieves the value stored under key.
func (s *BufferStore) Load(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT value FROM buffer_store WHERE key = ?`,
		key,
	).Scan(&value)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Save stores or replaces the value under key.
func (s *BufferStore) Save(ctx context.Context, key, value string) error {
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO buffer_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	return err
}

// Close closes the underlying database.
func (s *BufferStore) Close() error {
	return s.db.Close()
}

var _ ports.BufferStore = (*BufferStore)(nil)
