// Package clock provides Clock implementations used to time refills.
package clock

import (
	"sync"
	"time"

	"github.com/artpar/qrng/ports"
)

// Real returns the actual current time.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now()
}

var _ ports.Clock = Real{}

// Fake is a controllable clock for tests. Every call to Now can advance the
// clock by a fixed step so refill durations are deterministic.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewFake creates a fake clock set to the given time.
func NewFake(t time.Time) *Fake {
	return &Fake{current: t}
}

// WithStep makes every Now call advance the clock by d after reading it.
func (f *Fake) WithStep(d time.Duration) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.step = d
	return f
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.current
	f.current = f.current.Add(f.step)
	return now
}

// Set sets the fake current time.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t
}

// Advance moves the fake time forward by duration d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

var _ ports.Clock = (*Fake)(nil)
