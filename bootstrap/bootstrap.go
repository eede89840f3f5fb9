// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from an optional YAML file with QRNG_* environment
// overrides.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	apihttp "github.com/artpar/qrng/adapters/http"
	"github.com/artpar/qrng/adapters/metrics"
	"github.com/artpar/qrng/app"
	"github.com/artpar/qrng/config"
	"github.com/artpar/qrng/core/events"
	"github.com/artpar/qrng/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Generator  *app.Generator
	Events     *events.Bus
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry

	configPath string
	holder     *config.Holder
	store      ports.BufferStore
}

// Options provides optional configuration for application initialization.
type Options struct {
	// ConfigPath is the YAML config file. When empty or missing, the
	// environment alone is used.
	ConfigPath string

	// Mode overrides cache.refill_mode when set.
	Mode app.RefillMode

	// LogOutput receives log lines. Defaults to stdout.
	LogOutput io.Writer
}

// New creates and initializes the application.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := NewLogger(cfg.Logging, opts.LogOutput)
	logger.Info().Msg("initializing qrng")

	a := &App{
		Logger:     logger,
		Config:     cfg,
		Registry:   prometheus.NewRegistry(),
		configPath: opts.ConfigPath,
	}

	if cfg.Metrics.Enabled {
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(a.Registry)
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	genCfg, err := GeneratorConfig(cfg)
	if err != nil {
		return nil, err
	}
	if opts.Mode != "" {
		genCfg.Mode = opts.Mode
	}

	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.store = store
	if store != nil {
		logger.Info().Str("driver", cfg.Store.Driver).Str("dsn", cfg.Store.DSN).Msg("buffer store opened")
	}

	a.Events = events.NewBus(logger)
	LogEvents(a.Events, logger)

	deps := app.Deps{
		Provider: NewProvider(cfg.Provider, logger),
		Store:    store,
		Events:   a.Events,
		Logger:   logger,
	}
	if a.Metrics != nil {
		deps.Recorder = a.Metrics
	}

	gen, err := app.NewGenerator(ctx, genCfg, deps)
	if err != nil {
		a.closeStore()
		return nil, fmt.Errorf("create generator: %w", err)
	}
	a.Generator = gen

	a.initHTTPServer()
	return a, nil
}

func (a *App) initHTTPServer() {
	cfg := a.Config

	routerCfg := apihttp.RouterConfig{
		MetricsPath:    cfg.Metrics.Path,
		RequestTimeout: cfg.Server.WriteTimeout,
	}
	if a.Metrics != nil {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
	}

	router := apihttp.NewRouterWithConfig(
		apihttp.NewRandomHandler(a.Generator, a.Logger),
		apihttp.NewHealthHandler(a.Generator),
		a.Logger,
		routerCfg,
	)

	a.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// WatchConfig enables hot reload of the config file via fsnotify and
// SIGHUP. Only logging.level is applied live.
func (a *App) WatchConfig() error {
	if a.configPath == "" {
		return nil
	}
	if _, err := os.Stat(a.configPath); err != nil {
		return nil
	}

	h, err := config.NewHolder(a.configPath, a.Logger)
	if err != nil {
		return err
	}

	h.OnChange(func(cfg *config.Config) {
		lvl := SetLogLevel(cfg.Logging.Level)
		a.Logger.Info().Str("level", lvl.String()).Msg("log level applied")
		if a.Metrics != nil {
			a.Metrics.ConfigReloads.Inc()
		}
	})
	h.OnError(func(error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})

	if err := h.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch disabled")
	}
	h.WatchSignals()

	a.holder = h
	return nil
}

// Run warms the buffer up in the background, starts the HTTP server and
// blocks until shutdown.
func (a *App) Run() error {
	warmCtx, cancelWarmup := context.WithCancel(context.Background())
	defer cancelWarmup()
	go func() {
		if err := Warmup(warmCtx, a.Generator, a.Config.Cache.WarmupTimeout, a.Logger); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error().Err(err).Msg("buffer warm-up gave up, serving will retry on demand")
		}
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	cancelWarmup()
	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
		a.holder = nil
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// Stop refills before closing the store they write to.
	if a.Generator != nil {
		if err := a.Generator.Close(); err != nil && !errors.Is(err, app.ErrClosed) {
			a.Logger.Error().Err(err).Msg("generator close error")
		}
	}

	a.closeStore()

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("buffer store close error")
	}
	a.store = nil
}
