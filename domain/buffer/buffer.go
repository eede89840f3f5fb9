// Package buffer holds unconsumed random hex digits.
//
// The buffer is FIFO: digits are appended at the tail and popped from the
// head, so material is consumed in arrival order and never reused.
// A Buffer is not safe for concurrent use; its owner serializes access.
package buffer

import (
	"fmt"
	"strings"
)

// DefaultCacheSize is the target capacity when none is configured.
const DefaultCacheSize = 1000

// compactAt is the consumed prefix length that triggers reclaiming memory.
const compactAt = 4096

// Config is the immutable per-instance cache configuration (value type).
type Config struct {
	CacheSize int // Target number of buffered hex digits
}

// MinimumThreshold returns the low-water mark: 25% of CacheSize, floored.
func (c Config) MinimumThreshold() int {
	return c.CacheSize / 4
}

// Validate checks the configured capacity.
func (c Config) Validate() error {
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive, got %d", c.CacheSize)
	}
	return nil
}

// Buffer is a FIFO store of lower-case hex digits.
type Buffer struct {
	data []byte
	head int
}

// New creates a buffer seeded with existing digits (may be empty).
func New(initial string) *Buffer {
	b := &Buffer{}
	b.Append(initial)
	return b
}

// Append adds digits at the tail. Input is lower-cased.
func (b *Buffer) Append(digits string) {
	if digits == "" {
		return
	}
	if b.head >= compactAt && b.head*2 >= len(b.data) {
		b.data = append(b.data[:0], b.data[b.head:]...)
		b.head = 0
	}
	b.data = append(b.data, strings.ToLower(digits)...)
}

// Pop removes and returns up to n digits from the head.
// A short (possibly empty) result means the buffer ran out.
func (b *Buffer) Pop(n int) string {
	if n <= 0 {
		return ""
	}
	avail := len(b.data) - b.head
	if n > avail {
		n = avail
	}
	out := string(b.data[b.head : b.head+n])
	b.head += n
	if b.head == len(b.data) {
		b.data = b.data[:0]
		b.head = 0
	}
	return out
}

// Len returns the number of unconsumed digits.
func (b *Buffer) Len() int {
	return len(b.data) - b.head
}

// String returns the unconsumed digits without consuming them.
func (b *Buffer) String() string {
	return string(b.data[b.head:])
}
