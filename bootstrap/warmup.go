package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/qrng/app"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Warmup retries the initial fill with exponential backoff until the
// generator is ready, the timeout elapses or ctx ends. Each attempt is a
// single Refill; draws are never blocked by it.
func Warmup(ctx context.Context, g *app.Generator, timeout time.Duration, logger zerolog.Logger) error {
	if g.IsReady() {
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = timeout

	attempt := 0
	op := func() error {
		if g.IsReady() {
			return nil
		}
		attempt++
		err := g.Refill(ctx)
		if errors.Is(err, app.ErrClosed) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Msg("warm-up refill failed")
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return err
	}

	logger.Info().Int("attempts", attempt).Msg("buffer warmed up")
	return nil
}
