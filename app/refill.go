// Package app contains the refill controller and the Generator facade.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/artpar/qrng/adapters/clock"
	"github.com/artpar/qrng/adapters/idgen"
	"github.com/artpar/qrng/core/events"
	"github.com/artpar/qrng/domain/buffer"
	"github.com/artpar/qrng/domain/provider"
	"github.com/artpar/qrng/domain/sizing"
	"github.com/artpar/qrng/ports"
	"github.com/rs/zerolog"
)

// Deps are the collaborators of a Generator. Provider is required.
type Deps struct {
	Provider ports.Provider
	Store    ports.BufferStore    // optional persistence
	Events   ports.EventPublisher // optional lifecycle notifications
	Recorder ports.RefillRecorder // optional metrics
	Clock    ports.Clock
	IDs      ports.IDGenerator
	Logger   zerolog.Logger
}

// RefillStats is a point-in-time view of the controller.
type RefillStats struct {
	Length     int        `json:"length"`
	Capacity   int        `json:"capacity"`
	Threshold  int        `json:"threshold"`
	Ready      bool       `json:"ready"`
	Refilling  bool       `json:"refilling"`
	Mode       RefillMode `json:"mode"`
	Refills    int64      `json:"refills"`
	Failures   int64      `json:"failures"`
	LastRefill time.Time  `json:"last_refill,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// refillCall is one in-flight refill. done is closed once the outcome
// has been applied and the lifecycle events published.
type refillCall struct {
	id   string
	done chan struct{}
	err  error
}

func (c *refillCall) wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefillController owns the buffer and keeps it topped up.
//
// At most one refill is in flight at a time; inflight is the refill lock.
// The provider call runs without holding mu, so draws proceed against
// whatever is buffered while a background refill is outstanding.
type RefillController struct {
	cfg      Config
	bufCfg   buffer.Config
	provider ports.Provider
	store    ports.BufferStore
	events   ports.EventPublisher
	recorder ports.RefillRecorder
	clock    ports.Clock
	ids      ports.IDGenerator
	logger   zerolog.Logger

	mu         sync.Mutex
	buf        *buffer.Buffer
	ready      bool
	inflight   *refillCall
	closed     bool
	refills    int64
	failures   int64
	lastRefill time.Time
	lastErr    error
	version    uint64
	dirty      bool

	persistMu sync.Mutex
	persisted uint64

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRefillController creates a controller with an empty buffer.
// Call Restore to load a persisted buffer.
func NewRefillController(cfg Config, deps Deps) (*RefillController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Provider == nil {
		return nil, &ConfigurationError{Field: "provider", Reason: "is required"}
	}
	if cfg.Mode == "" {
		cfg.Mode = RefillBackground
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.IDs == nil {
		deps.IDs = idgen.UUID{}
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &RefillController{
		cfg:      cfg,
		bufCfg:   buffer.Config{CacheSize: cfg.CacheSize},
		provider: deps.Provider,
		store:    deps.Store,
		events:   deps.Events,
		recorder: deps.Recorder,
		clock:    deps.Clock,
		ids:      deps.IDs,
		logger:   deps.Logger,
		buf:      buffer.New(""),
		baseCtx:  ctx,
		cancel:   cancel,
	}

	if c.store != nil && cfg.PersistInterval > 0 {
		c.wg.Add(1)
		go c.flushLoop(cfg.PersistInterval)
	}
	return c, nil
}

// Restore loads the persisted buffer, if a store is configured.
// A corrupt snapshot is discarded with a warning.
func (c *RefillController) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	value, found, err := c.store.Load(ctx, c.cfg.storeKey())
	if err != nil {
		return fmt.Errorf("load buffer: %w", err)
	}
	if !found {
		return nil
	}

	digits, err := buffer.DecodeSnapshot(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", c.cfg.storeKey()).Msg("discarding persisted buffer")
		return nil
	}
	if digits == "" {
		return nil
	}

	c.mu.Lock()
	c.buf.Append(digits)
	length := c.buf.Len()
	becameReady := !c.ready
	c.ready = true
	c.mu.Unlock()

	c.recorder.BufferLevel(length, true)
	c.logger.Info().Int("length", length).Msg("buffer restored")

	if becameReady {
		c.publish(events.Event{Name: events.CacheReady, Length: length})
	}
	return nil
}

// EnsureCapacity starts a refill when the buffer holds fewer than required
// digits or has dropped below the low-water mark.
//
// When a refill is already in flight the call does nothing, unless wait is
// set, in which case it suspends until that refill resolves or ctx ends.
// With wait set, the returned error is the refill outcome.
func (c *RefillController) EnsureCapacity(ctx context.Context, required int, wait bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	call := c.inflight
	if call == nil {
		length := c.buf.Len()
		if length >= required && length >= c.bufCfg.MinimumThreshold() {
			c.mu.Unlock()
			return nil
		}
		call = c.startLocked()
	}
	c.mu.Unlock()

	if !wait {
		return nil
	}
	return call.wait(ctx)
}

// Refill performs a refill and waits for it, joining one already in flight.
func (c *RefillController) Refill(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	call := c.inflight
	if call == nil {
		call = c.startLocked()
	}
	c.mu.Unlock()

	return call.wait(ctx)
}

// Take pops n digits for a draw of the given kind.
//
// In background mode a short buffer yields ErrUnavailable immediately and
// nothing is consumed. In wait mode the call refills synchronously until
// enough digits are buffered, and yields ErrUnavailable wrapping the cause
// once a refill fails.
func (c *RefillController) Take(ctx context.Context, n int, kind string) (string, error) {
	if n <= 0 {
		return "", nil
	}

	if err := c.EnsureCapacity(ctx, n, false); err != nil {
		return "", err
	}

	for {
		digits, ok := c.pop(n, kind)
		if ok {
			return digits, nil
		}

		if c.cfg.Mode != RefillWait {
			return "", ErrUnavailable
		}
		if err := c.Refill(ctx); err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}
}

// pop removes n digits when that many are buffered.
func (c *RefillController) pop(n int, kind string) (string, bool) {
	c.mu.Lock()
	if c.buf.Len() < n {
		c.mu.Unlock()
		return "", false
	}

	digits := c.buf.Pop(n)
	length := c.buf.Len()
	emptied := length == 0
	if emptied {
		c.ready = false
	}
	ready := c.ready
	c.markDirtyLocked()
	c.mu.Unlock()

	c.logger.Debug().
		Str("kind", kind).
		Int("popped", n).
		Int("remaining", length).
		Msg("buffer pop")

	c.recorder.DigitsConsumed(kind, n)
	c.recorder.BufferLevel(length, ready)

	if emptied {
		c.publish(events.Event{Name: events.CacheEmpty})
	}
	// Top up in the background once the low-water mark is crossed.
	required := 0
	if emptied {
		required = 1
	}
	c.EnsureCapacity(c.baseCtx, required, false)

	return digits, true
}

// IsReady reports whether the buffer has been filled since it last ran dry.
func (c *RefillController) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Len returns the number of buffered digits.
func (c *RefillController) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Len()
}

// Stats returns a snapshot of the controller state.
func (c *RefillController) Stats() RefillStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := RefillStats{
		Length:     c.buf.Len(),
		Capacity:   c.cfg.CacheSize,
		Threshold:  c.bufCfg.MinimumThreshold(),
		Ready:      c.ready,
		Refilling:  c.inflight != nil,
		Mode:       c.cfg.Mode,
		Refills:    c.refills,
		Failures:   c.failures,
		LastRefill: c.lastRefill,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// Flush writes draws not yet persisted to the store. Refills are written
// as they complete; draws are written by the periodic flusher, by Flush and
// by Close.
func (c *RefillController) Flush(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return nil
	}
	data, version := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.persist(ctx, data, version); err != nil {
		c.mu.Lock()
		if version == c.version {
			c.dirty = true
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// Close stops new refills, cancels the one in flight, waits for it and
// flushes pending draws to the store.
func (c *RefillController) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	if err := c.Flush(context.Background()); err != nil {
		return fmt.Errorf("flush buffer: %w", err)
	}
	return nil
}

// flushLoop persists pending draws every interval until Close.
func (c *RefillController) flushLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.baseCtx.Done():
			return
		case <-ticker.C:
			if err := c.Flush(c.baseCtx); err != nil {
				c.logger.Warn().Err(err).Msg("persist buffer failed")
			}
		}
	}
}

// startLocked takes the refill lock and launches the refill.
// Must be called with c.mu held and c.inflight nil.
func (c *RefillController) startLocked() *refillCall {
	call := &refillCall{
		id:   c.ids.New(),
		done: make(chan struct{}),
	}
	c.inflight = call

	c.wg.Add(1)
	go c.run(call)
	return call
}

// run executes one refill. The deferred block releases the refill lock on
// every exit path, including a panicking provider.
func (c *RefillController) run(call *refillCall) {
	defer c.wg.Done()

	start := c.clock.Now()
	req := sizing.Compute(c.cfg.CacheSize, c.cfg.Limits)

	var (
		digits string
		err    error
	)
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
		c.finish(call, req, start, digits, err)
	}()

	c.logger.Debug().
		Str("refill_id", call.id).
		Int("blocks", req.BlockCount).
		Int("block_size", req.BlockSize).
		Msg("refill started")

	digits, err = c.fetch(req)
}

func (c *RefillController) fetch(req sizing.Request) (string, error) {
	ctx := c.baseCtx
	if c.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.FetchTimeout)
		defer cancel()
	}

	resp, err := c.provider.Fetch(ctx, req)
	if err != nil {
		return "", err
	}
	items, err := provider.Validate(resp, req)
	if err != nil {
		return "", err
	}
	return strings.Join(items, ""), nil
}

// finish applies a refill outcome, releases the lock, publishes the
// lifecycle events and finally wakes the waiters.
func (c *RefillController) finish(call *refillCall, req sizing.Request, start time.Time, digits string, err error) {
	elapsed := c.clock.Now().Sub(start)

	c.mu.Lock()
	c.inflight = nil
	becameReady := false
	if err == nil {
		c.buf.Append(digits)
		c.refills++
		c.lastRefill = c.clock.Now()
		c.lastErr = nil
		becameReady = !c.ready
		c.ready = true
	} else {
		c.failures++
		c.lastErr = err
	}
	length := c.buf.Len()
	ready := c.ready
	var (
		data    string
		version uint64
	)
	if err == nil && c.store != nil {
		c.markDirtyLocked()
		data, version = c.snapshotLocked()
	}
	c.mu.Unlock()

	call.err = err
	defer close(call.done)

	if err != nil {
		c.recorder.RefillFailed(failureReason(err), elapsed)
		c.logger.Warn().
			Err(err).
			Str("refill_id", call.id).
			Dur("elapsed", elapsed).
			Msg("refill failed")
		c.publish(events.Event{
			Name:     events.CacheUpdateFailed,
			RefillID: call.id,
			Length:   length,
			Err:      err,
			Data:     map[string]any{"error": err.Error()},
		})
		return
	}

	c.recorder.RefillCompleted(len(digits), elapsed)
	c.recorder.BufferLevel(length, ready)
	if c.store != nil {
		if err := c.persist(context.Background(), data, version); err != nil {
			c.logger.Warn().Err(err).Msg("persist buffer failed")
			c.mu.Lock()
			if version == c.version {
				c.dirty = true
			}
			c.mu.Unlock()
		}
	}

	c.logger.Debug().
		Str("refill_id", call.id).
		Int("digits", len(digits)).
		Int("length", length).
		Dur("elapsed", elapsed).
		Msg("refill completed")

	if becameReady {
		c.publish(events.Event{Name: events.CacheReady, RefillID: call.id, Length: length})
	}
	c.publish(events.Event{
		Name:     events.CacheUpdated,
		RefillID: call.id,
		Length:   length,
		Data: map[string]any{
			"digits":     len(digits),
			"blocks":     req.BlockCount,
			"block_size": req.BlockSize,
		},
	})
}

// markDirtyLocked records a buffer change that has not been persisted.
// Must be called with c.mu held.
func (c *RefillController) markDirtyLocked() {
	if c.store == nil {
		return
	}
	c.version++
	c.dirty = true
}

// snapshotLocked captures the buffer contents for persistence and clears
// the dirty flag. Must be called with c.mu held.
func (c *RefillController) snapshotLocked() (string, uint64) {
	c.dirty = false
	return c.buf.String(), c.version
}

// persist encodes and writes a snapshot unless a newer one has already
// been written. The in-memory buffer stays authoritative on failure.
func (c *RefillController) persist(ctx context.Context, data string, version uint64) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	if version <= c.persisted {
		return nil
	}
	snapshot := buffer.EncodeSnapshot(data)
	if err := c.store.Save(ctx, c.cfg.storeKey(), snapshot); err != nil {
		return err
	}
	c.persisted = version
	c.logger.Debug().Str("key", c.cfg.storeKey()).Int("bytes", len(snapshot)).Msg("buffer persisted")
	return nil
}

func (c *RefillController) publish(event events.Event) {
	if c.events == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = c.clock.Now()
	}
	c.events.Publish(context.Background(), event)
}

func failureReason(err error) string {
	switch {
	case provider.IsProviderError(err):
		return "provider"
	case provider.IsTransportError(err):
		return "transport"
	case errors.As(err, new(*panicError)):
		return "panic"
	default:
		return "other"
	}
}

type nopRecorder struct{}

func (nopRecorder) RefillCompleted(int, time.Duration) {}
func (nopRecorder) RefillFailed(string, time.Duration) {}
func (nopRecorder) DigitsConsumed(string, int)         {}
func (nopRecorder) BufferLevel(int, bool)              {}
