// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/qrng/core/events"
	"github.com/artpar/qrng/domain/provider"
	"github.com/artpar/qrng/domain/sizing"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// EventPublisher delivers cache lifecycle events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// -----------------------------------------------------------------------------
// Provider Port
// -----------------------------------------------------------------------------

// Provider fetches a batch of random hex blocks.
// Implementations return *provider.TransportError for network failures and
// timeouts; envelope validation is the caller's job.
type Provider interface {
	Fetch(ctx context.Context, req sizing.Request) (provider.Response, error)
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// BufferStore persists the unconsumed buffer across restarts.
// Writers must be serialized by the caller; concurrent writers from
// separate processes are not supported.
type BufferStore interface {
	// Load returns the stored value and whether the key exists.
	Load(ctx context.Context, key string) (string, bool, error)

	// Save replaces the stored value.
	Save(ctx context.Context, key, value string) error

	// Close releases the store.
	Close() error
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// RefillRecorder receives refill and consumption measurements.
type RefillRecorder interface {
	// RefillCompleted records a successful refill that added digits.
	RefillCompleted(digits int, elapsed time.Duration)

	// RefillFailed records a failed refill; reason is a short class
	// such as "provider", "transport" or "panic".
	RefillFailed(reason string, elapsed time.Duration)

	// DigitsConsumed records digits popped for a draw of the given kind.
	DigitsConsumed(kind string, n int)

	// BufferLevel records the buffered digit count and readiness.
	BufferLevel(length int, ready bool)
}
