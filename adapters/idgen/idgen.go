// Package idgen provides refill ID generators.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/qrng/ports"
	"github.com/google/uuid"
)

// UUID generates random UUIDs for refill correlation.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

var _ ports.IDGenerator = UUID{}

// Sequential generates predictable IDs (for testing).
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

var _ ports.IDGenerator = (*Sequential)(nil)
