package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/artpar/qrng/adapters/metrics"
	"github.com/artpar/qrng/pkg/jsonapi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ReadinessChecker reports whether the service can serve draws.
type ReadinessChecker interface {
	IsReady() bool
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checker ReadinessChecker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Liveness returns a simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	jsonapi.WriteMeta(w, http.StatusOK, jsonapi.Meta{"status": "ok"})
}

// Readiness returns 503 until the buffer has been filled.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil && !h.checker.IsReady() {
		jsonapi.WriteServiceUnavailable(w, "random buffer is not ready")
		return
	}
	jsonapi.WriteMeta(w, http.StatusOK, jsonapi.Meta{"status": "ok"})
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // Optional exporter handler, defaults to promhttp.Handler()
	MetricsPath    string       // Defaults to /metrics
	RequestTimeout time.Duration
}

// NewRouter creates the main HTTP router.
func NewRouter(randomHandler *RandomHandler, healthHandler *HealthHandler, logger zerolog.Logger) chi.Router {
	return NewRouterWithConfig(randomHandler, healthHandler, logger, RouterConfig{})
}

// NewRouterWithConfig creates the main HTTP router with optional config.
func NewRouterWithConfig(randomHandler *RandomHandler, healthHandler *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, metricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, metricsPath))
	}

	r.Get("/health", healthHandler.Liveness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	if cfg.MetricsHandler != nil {
		r.Handle(metricsPath, cfg.MetricsHandler)
	} else if cfg.Metrics != nil {
		r.Handle(metricsPath, promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/integer", randomHandler.Integer)
		r.Get("/hex", randomHandler.Hex)
		r.Get("/float", randomHandler.Float)
		r.Get("/boolean", randomHandler.Boolean)
		r.Get("/average/integer", randomHandler.AverageInteger)
		r.Get("/average/float", randomHandler.AverageFloat)
		r.Post("/choice", randomHandler.Choice)
		r.Post("/shuffle", randomHandler.Shuffle)
		r.Get("/stats", randomHandler.Stats)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		jsonapi.WriteNotFound(w, "route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		jsonapi.WriteMethodNotAllowed(w, req.Method, allowedMethods(r, req.URL.Path))
	})

	return r
}

// allowedMethods lists the methods routed for path.
func allowedMethods(r chi.Routes, path string) []string {
	var allowed []string
	for _, m := range []string{http.MethodGet, http.MethodPost} {
		if r.Match(chi.NewRouteContext(), m, path) {
			allowed = append(allowed, m)
		}
	}
	return allowed
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == metricsPath {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			m.RequestsTotal.WithLabelValues(r.Method, route, statusLabel(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

// NewLoggingMiddleware creates request logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == metricsPath {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
