// Package memory provides in-memory implementations for testing and for
// processes that do not need the buffer to survive a restart.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/artpar/qrng/ports"
)

// ErrClosed is returned by a closed store.
var ErrClosed = errors.New("store closed")

// BufferStore is an in-memory implementation of ports.BufferStore.
type BufferStore struct {
	mu     sync.RWMutex
	values map[string]string
	saves  int
	closed bool
	err    error
}

// NewBufferStore creates a new in-memory buffer store.
func NewBufferStore() *BufferStore {
	return &BufferStore{
		values: make(map[string]string),
	}
}

// FailWith makes subsequent Save calls return err (nil clears it).
func (s *BufferStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Load retrieves the value stored under key.
func (s *BufferStore) Load(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// Save stores the value under key.
func (s *BufferStore) Save(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.err != nil {
		return s.err
	}
	s.values[key] = value
	s.saves++
	return nil
}

// Saves returns how many successful Save calls were made.
func (s *BufferStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Close marks the store closed.
func (s *BufferStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ ports.BufferStore = (*BufferStore)(nil)
