// Package events provides a publish/subscribe bus for cache lifecycle
// notifications (ready, empty, updated, update failed).
package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Cache lifecycle event names.
const (
	// CacheReady fires once per empty-to-ready transition.
	CacheReady = "cache.ready"

	// CacheEmpty fires when a pop leaves no digits buffered.
	CacheEmpty = "cache.empty"

	// CacheUpdated fires after every successful refill.
	CacheUpdated = "cache.updated"

	// CacheUpdateFailed fires when a refill fails; Err carries the cause.
	CacheUpdateFailed = "cache.update_failed"
)

// Event represents a published event.
type Event struct {
	// Name is the event name (e.g., "cache.ready").
	Name string

	// Time is when the event was raised.
	Time time.Time

	// RefillID correlates the event with the refill that caused it.
	RefillID string

	// Length is the buffered digit count when the event was raised.
	Length int

	// Err is set for CacheUpdateFailed.
	Err error

	// Data contains additional details.
	Data map[string]any
}

// Handler is a function that processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event.
// Supports wildcard subscriptions:
//   - "cache.ready" - exact match
//   - "cache.*" - all cache events
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish emits an event to all matching handlers.
// Handlers are called synchronously in registration order, outside the
// bus lock, so a handler may subscribe or publish. Handler errors are logged.
func (b *Bus) Publish(ctx context.Context, event Event) {
	matched := b.match(event.Name)

	b.logger.Debug().
		Str("event", event.Name).
		Str("refill_id", event.RefillID).
		Int("length", event.Length).
		Int("handlers", len(matched)).
		Msg("event emitted")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// PublishAsync emits an event asynchronously.
func (b *Bus) PublishAsync(ctx context.Context, event Event) {
	go b.Publish(ctx, event)
}

// HasSubscribers checks if any handlers are registered for an event.
func (b *Bus) HasSubscribers(event string) bool {
	return len(b.match(event)) > 0
}

func (b *Bus) match(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	matched = append(matched, b.handlers[name]...)

	if prefix, _, ok := strings.Cut(name, "."); ok {
		matched = append(matched, b.handlers[prefix+".*"]...)
	}

	matched = append(matched, b.handlers["*"]...)
	return matched
}
