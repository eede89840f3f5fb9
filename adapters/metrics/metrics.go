// Package metrics provides Prometheus metrics collection for qrng.
package metrics

import (
	"time"

	"github.com/artpar/qrng/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qrng"

// Collector holds all Prometheus metrics for qrng.
type Collector struct {
	// Refill metrics
	RefillsTotal   prometheus.Counter
	RefillFailures *prometheus.CounterVec
	RefillDuration *prometheus.HistogramVec
	RefillDigits   prometheus.Counter
	LastRefillTime prometheus.Gauge

	// Buffer metrics
	BufferDigits prometheus.Gauge
	Ready        prometheus.Gauge

	// Consumption metrics
	ConsumedDigits *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a new metrics collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RefillsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refills_total",
				Help:      "Total number of successful buffer refills",
			},
		),
		RefillFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refill_failures_total",
				Help:      "Total number of failed buffer refills",
			},
			[]string{"reason"},
		),
		RefillDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refill_duration_seconds",
				Help:      "Provider round trip duration per refill",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		RefillDigits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refill_digits_total",
				Help:      "Total hex digits added to the buffer",
			},
		),
		LastRefillTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_refill_timestamp",
				Help:      "Unix timestamp of the last successful refill",
			},
		),
		BufferDigits: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "buffer_digits",
				Help:      "Hex digits currently buffered",
			},
		),
		Ready: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ready",
				Help:      "1 when the buffer holds data, 0 otherwise",
			},
		),
		ConsumedDigits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "digits_consumed_total",
				Help:      "Hex digits popped from the buffer by draw kind",
			},
			[]string{"kind"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
	}
}

// RefillCompleted implements ports.RefillRecorder.
func (c *Collector) RefillCompleted(digits int, elapsed time.Duration) {
	c.RefillsTotal.Inc()
	c.RefillDigits.Add(float64(digits))
	c.RefillDuration.WithLabelValues("success").Observe(elapsed.Seconds())
	c.LastRefillTime.SetToCurrentTime()
}

// RefillFailed implements ports.RefillRecorder.
func (c *Collector) RefillFailed(reason string, elapsed time.Duration) {
	c.RefillFailures.WithLabelValues(reason).Inc()
	c.RefillDuration.WithLabelValues("failure").Observe(elapsed.Seconds())
}

// DigitsConsumed implements ports.RefillRecorder.
func (c *Collector) DigitsConsumed(kind string, n int) {
	c.ConsumedDigits.WithLabelValues(kind).Add(float64(n))
}

// BufferLevel implements ports.RefillRecorder.
func (c *Collector) BufferLevel(length int, ready bool) {
	c.BufferDigits.Set(float64(length))
	if ready {
		c.Ready.Set(1)
	} else {
		c.Ready.Set(0)
	}
}

var _ ports.RefillRecorder = (*Collector)(nil)
