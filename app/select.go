package app

import (
	"context"
	"math"
	"sync"

	"github.com/artpar/qrng/domain/hexmath"
)

// Choice returns an element of seq at a uniformly drawn index.
func Choice[T any](ctx context.Context, g *Generator, seq []T) (T, error) {
	var zero T
	if len(seq) == 0 {
		return zero, ErrEmptySequence
	}

	i, err := g.IntegerIn(ctx, 0, int64(len(seq)))
	if err != nil {
		return zero, err
	}
	return seq[i], nil
}

// Shuffle returns a new slice holding the elements of seq in random order.
// Each step draws an index over the remaining elements and moves that
// element to the output. seq is not modified.
func Shuffle[T any](ctx context.Context, g *Generator, seq []T) ([]T, error) {
	remaining := make([]T, len(seq))
	copy(remaining, seq)

	out := make([]T, 0, len(seq))
	for len(remaining) > 0 {
		i, err := g.IntegerIn(ctx, 0, int64(len(remaining)))
		if err != nil {
			return nil, err
		}
		out = append(out, remaining[i])
		remaining = append(remaining[:i], remaining[i+1:]...)
	}
	return out, nil
}

// Source adapts a Generator to math/rand's Source64 so callers can inject
// it where a *rand.Rand is expected. Draws use the context given to
// NewSource. Since Source64 cannot return errors, a failed draw yields
// zero (or NaN from Float64) and is recorded for Err.
//
// A Source is safe for concurrent use, but a *rand.Rand wrapping it is not.
type Source struct {
	ctx context.Context
	g   *Generator

	mu  sync.Mutex
	err error
}

// NewSource creates a Source drawing from g.
func NewSource(ctx context.Context, g *Generator) *Source {
	return &Source{ctx: ctx, g: g}
}

// Uint64 returns 64 random bits.
func (s *Source) Uint64() uint64 {
	digits, err := s.g.refill.Take(s.ctx, hexmath.MaxDigits, "source")
	if err != nil {
		s.setErr(err)
		return 0
	}
	v, err := hexmath.Parse(digits)
	if err != nil {
		s.setErr(err)
		return 0
	}
	return v
}

// Int63 returns a non-negative 63-bit value.
func (s *Source) Int63() int64 {
	return int64(s.Uint64() >> 1)
}

// Seed is a no-op; the provider cannot be seeded.
func (s *Source) Seed(int64) {}

// Float64 returns Generator.Float, or NaN when the draw fails.
func (s *Source) Float64() float64 {
	v, err := s.g.Float(s.ctx)
	if err != nil {
		s.setErr(err)
		return math.NaN()
	}
	return v
}

// Err returns the most recent draw error.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Source) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
