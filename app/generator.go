package app

import (
	"context"
	"math"
	"sync"

	"github.com/artpar/qrng/domain/hexmath"
	"github.com/rs/zerolog"
)

// Generator serves random values drawn from a buffer of provider digits.
// It is safe for concurrent use.
type Generator struct {
	refill *RefillController
	logger zerolog.Logger

	warned sync.Map // uint64 span -> struct{}
}

// NewGenerator validates cfg, restores any persisted buffer and starts the
// initial fill. In wait mode the fill completes before NewGenerator
// returns; in background mode it runs asynchronously.
//
// Configuration problems are returned as *ConfigurationError. A failed
// initial fill is not an error: the generator starts unready and the
// failure is reported through the cache.update_failed event.
func NewGenerator(ctx context.Context, cfg Config, deps Deps) (*Generator, error) {
	rc, err := NewRefillController(cfg, deps)
	if err != nil {
		return nil, err
	}

	if err := rc.Restore(ctx); err != nil {
		deps.Logger.Warn().Err(err).Msg("restore buffer failed")
	}

	g := &Generator{
		refill: rc,
		logger: deps.Logger,
	}

	if err := rc.EnsureCapacity(ctx, 1, rc.cfg.Mode == RefillWait); err != nil {
		deps.Logger.Warn().Err(err).Msg("initial fill failed")
	}
	return g, nil
}

// NewMaxCapacity creates a generator whose cache is as large as a single
// provider request can fill.
func NewMaxCapacity(ctx context.Context, cfg Config, deps Deps) (*Generator, error) {
	cfg.CacheSize = cfg.Limits.MaxCapacity()
	return NewGenerator(ctx, cfg, deps)
}

// Integer draws from [min, max). Omitted bounds default to [0, 256); when
// only one bound is given the other is offset by 256.
func (g *Generator) Integer(ctx context.Context, min, max *int64) (int64, error) {
	lo, hi, err := hexmath.ResolveBounds(min, max)
	if err != nil {
		return 0, err
	}
	return g.IntegerIn(ctx, lo, hi)
}

// IntegerIn draws from [min, max).
//
// One guard digit beyond ceil(log16(max-min)) is consumed and the parsed
// value is folded into range by modulo, which biases towards low values
// when max-min is not base-16 compatible.
func (g *Generator) IntegerIn(ctx context.Context, min, max int64) (int64, error) {
	span, err := hexmath.Span(min, max)
	if err != nil {
		return 0, err
	}
	if span == 1 {
		return min, nil
	}

	if !hexmath.IsBase16Compatible(span) {
		if _, seen := g.warned.LoadOrStore(span, struct{}{}); !seen {
			g.logger.Warn().
				Uint64("range", span).
				Msg("range is not base-16 compatible, results are biased towards lower values")
		}
	}

	digits, err := g.refill.Take(ctx, hexmath.DigitsToPop(span), "integer")
	if err != nil {
		return 0, err
	}
	v, err := hexmath.Parse(digits)
	if err != nil {
		return 0, err
	}
	return hexmath.Fold(min, max, v), nil
}

// Hexadecimal returns length raw hex digits. A length <= 0 means 6.
func (g *Generator) Hexadecimal(ctx context.Context, length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	return g.refill.Take(ctx, length, "hex")
}

// Float returns a value in [0, 1) by dividing a 64-bit draw by the next
// power of ten. The distribution is not uniform.
func (g *Generator) Float(ctx context.Context) (float64, error) {
	digits, err := g.refill.Take(ctx, hexmath.FloatDigits, "float")
	if err != nil {
		return math.NaN(), err
	}
	v, err := hexmath.Parse(digits)
	if err != nil {
		return math.NaN(), err
	}
	return hexmath.Normalize(v), nil
}

// Boolean returns true when a draw from [0, 2) is 1.
func (g *Generator) Boolean(ctx context.Context) (bool, error) {
	v, err := g.IntegerIn(ctx, 0, 2)
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// AverageInteger returns the mean of iterations draws from [min, max),
// rounded half up. iterations <= 0 means 10.
func (g *Generator) AverageInteger(ctx context.Context, min, max int64, iterations int) (int64, error) {
	if iterations <= 0 {
		iterations = 10
	}

	var total float64
	for i := 0; i < iterations; i++ {
		v, err := g.IntegerIn(ctx, min, max)
		if err != nil {
			return 0, err
		}
		total += float64(v)
	}
	return int64(math.Floor(total/float64(iterations) + 0.5)), nil
}

// AverageFloat returns the mean of iterations Float draws.
// iterations <= 0 means 10.
func (g *Generator) AverageFloat(ctx context.Context, iterations int) (float64, error) {
	if iterations <= 0 {
		iterations = 10
	}

	var total float64
	for i := 0; i < iterations; i++ {
		v, err := g.Float(ctx)
		if err != nil {
			return math.NaN(), err
		}
		total += v
	}
	return total / float64(iterations), nil
}

// IsReady reports whether the buffer has been filled since it last ran dry.
func (g *Generator) IsReady() bool {
	return g.refill.IsReady()
}

// Refill forces a refill and waits for it.
func (g *Generator) Refill(ctx context.Context) error {
	return g.refill.Refill(ctx)
}

// Stats returns the refill controller state.
func (g *Generator) Stats() RefillStats {
	return g.refill.Stats()
}

// Flush writes draws not yet persisted to the store.
func (g *Generator) Flush(ctx context.Context) error {
	return g.refill.Flush(ctx)
}

// Close stops background refills and flushes pending draws. The store, if
// any, is left open.
func (g *Generator) Close() error {
	return g.refill.Close()
}
