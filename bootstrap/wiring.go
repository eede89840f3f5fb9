package bootstrap

import (
	"context"
	"fmt"

	"github.com/artpar/qrng/adapters/bolt"
	"github.com/artpar/qrng/adapters/memory"
	"github.com/artpar/qrng/adapters/provider"
	"github.com/artpar/qrng/adapters/random"
	"github.com/artpar/qrng/adapters/sqlite"
	"github.com/artpar/qrng/app"
	"github.com/artpar/qrng/config"
	"github.com/artpar/qrng/core/events"
	"github.com/artpar/qrng/domain/sizing"
	"github.com/artpar/qrng/ports"
	"github.com/rs/zerolog"
)

// NewProvider returns the provider selected by cfg.Mode.
func NewProvider(cfg config.ProviderConfig, logger zerolog.Logger) ports.Provider {
	if cfg.Mode == "local" {
		logger.Info().Msg("using local crypto/rand provider")
		return random.Local{}
	}

	logger.Info().Str("url", cfg.URL).Msg("using remote provider")
	return provider.NewClient(provider.ClientConfig{
		BaseURL: cfg.URL,
		Timeout: cfg.Timeout,
		Headers: cfg.Headers,
		Logger:  logger,
	})
}

// OpenStore opens the buffer store selected by cfg.Driver.
// The "none" driver returns a nil store and disables persistence.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (ports.BufferStore, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return memory.NewBufferStore(), nil
	case "sqlite":
		s, err := sqlite.OpenBufferStore(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case "bolt":
		s, err := bolt.Open(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// GeneratorConfig converts the file configuration into generator settings.
func GeneratorConfig(cfg *config.Config) (app.Config, error) {
	mode, err := app.ParseRefillMode(cfg.Cache.RefillMode)
	if err != nil {
		return app.Config{}, err
	}

	gc := app.DefaultConfig()
	gc.CacheSize = cfg.Cache.Size
	gc.Limits = sizing.Limits{
		MaxBlockSize: cfg.Provider.MaxBlockSize,
		MaxArraySize: cfg.Provider.MaxArraySize,
	}
	gc.Mode = mode
	gc.FetchTimeout = cfg.Provider.Timeout
	gc.StoreKey = cfg.Store.Key
	gc.PersistInterval = cfg.Store.FlushInterval
	return gc, gc.Validate()
}

// LogEvents logs every cache lifecycle event.
func LogEvents(bus *events.Bus, logger zerolog.Logger) {
	bus.Subscribe("cache.*", func(ctx context.Context, e events.Event) error {
		var ev *zerolog.Event
		switch e.Name {
		case events.CacheUpdateFailed:
			ev = logger.Warn().Err(e.Err)
		case events.CacheUpdated:
			ev = logger.Debug().Interface("data", e.Data)
		default:
			ev = logger.Info()
		}
		ev.Str("event", e.Name).
			Str("refill_id", e.RefillID).
			Int("length", e.Length).
			Msg("cache event")
		return nil
	})
}
