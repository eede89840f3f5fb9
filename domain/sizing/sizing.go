// Package sizing computes provider request dimensions for a cache refill.
// All functions are pure - same input always produces same output.
package sizing

import (
	"fmt"
	"math"
)

// Default provider ceilings.
const (
	DefaultMaxBlockSize = 10
	DefaultMaxArraySize = 1024
)

// Request is the shape of a single provider call (value type).
type Request struct {
	BlockCount int // Number of blocks ("length" on the wire)
	BlockSize  int // Bytes per block ("size" on the wire)
}

// HexDigits returns how many hex characters the request yields when the
// provider honours it (two per byte).
func (r Request) HexDigits() int {
	return r.BlockCount * r.BlockSize * 2
}

// Limits holds the provider-side ceilings (value type).
type Limits struct {
	MaxBlockSize int
	MaxArraySize int
}

// DefaultLimits returns the ceilings of the public QRNG provider.
func DefaultLimits() Limits {
	return Limits{
		MaxBlockSize: DefaultMaxBlockSize,
		MaxArraySize: DefaultMaxArraySize,
	}
}

// MaxCapacity is the largest cache a single request can fill.
func (l Limits) MaxCapacity() int {
	return l.MaxBlockSize * l.MaxArraySize * 2
}

// Validate checks that both ceilings are positive.
func (l Limits) Validate() error {
	if l.MaxBlockSize <= 0 {
		return fmt.Errorf("max block size must be positive, got %d", l.MaxBlockSize)
	}
	if l.MaxArraySize <= 0 {
		return fmt.Errorf("max array size must be positive, got %d", l.MaxArraySize)
	}
	return nil
}

// Compute finds the smallest block size whose block count stays within the
// provider limits while covering capacity hex digits.
// This is a PURE function.
//
// Block sizes are tried in ascending order. When no block size in
// [1, maxBlockSize] works, the largest request the provider allows is
// returned even though it falls short of capacity.
func Compute(capacity int, limits Limits) Request {
	for blockSize := 1; blockSize <= limits.MaxBlockSize; blockSize++ {
		arraySize := float64(capacity) / float64(2*blockSize)

		if arraySize > float64(limits.MaxArraySize) {
			continue
		}

		if arraySize*2*float64(blockSize) >= float64(capacity) {
			// Odd capacities lose one digit to the floor; a request
			// never asks for zero blocks.
			count := int(math.Floor(arraySize))
			if count < 1 {
				count = 1
			}
			return Request{BlockCount: count, BlockSize: blockSize}
		}
	}

	return Request{
		BlockCount: limits.MaxArraySize,
		BlockSize:  limits.MaxBlockSize,
	}
}
