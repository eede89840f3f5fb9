package metrics_test

import (
	"testing"
	"time"

	"github.com/artpar/qrng/adapters/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m.RefillsTotal == nil {
		t.Error("RefillsTotal is nil")
	}
	if m.RefillFailures == nil {
		t.Error("RefillFailures is nil")
	}
	if m.BufferDigits == nil {
		t.Error("BufferDigits is nil")
	}
	if m.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
}

func TestRefillCompleted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RefillCompleted(1000, 200*time.Millisecond)
	m.RefillCompleted(500, 100*time.Millisecond)

	families := gather(t, reg)

	if got := families["qrng_refills_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("refills_total = %v, want 2", got)
	}
	if got := families["qrng_refill_digits_total"].GetMetric()[0].GetCounter().GetValue(); got != 1500 {
		t.Errorf("refill_digits_total = %v, want 1500", got)
	}
	if _, ok := families["qrng_last_refill_timestamp"]; !ok {
		t.Error("qrng_last_refill_timestamp not found")
	}
}

func TestRefillFailed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RefillFailed("transport", time.Second)
	m.RefillFailed("provider", time.Second)
	m.RefillFailed("transport", time.Second)

	f, ok := gather(t, reg)["qrng_refill_failures_total"]
	if !ok {
		t.Fatal("qrng_refill_failures_total not found")
	}
	if len(f.GetMetric()) != 2 {
		t.Errorf("expected 2 series, got %d", len(f.GetMetric()))
	}
}

func TestBufferLevel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.BufferLevel(750, true)
	families := gather(t, reg)
	if got := families["qrng_buffer_digits"].GetMetric()[0].GetGauge().GetValue(); got != 750 {
		t.Errorf("buffer_digits = %v, want 750", got)
	}
	if got := families["qrng_ready"].GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Errorf("ready = %v, want 1", got)
	}

	m.BufferLevel(0, false)
	families = gather(t, reg)
	if got := families["qrng_ready"].GetMetric()[0].GetGauge().GetValue(); got != 0 {
		t.Errorf("ready = %v, want 0", got)
	}
}

func TestDigitsConsumed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.DigitsConsumed("integer", 3)
	m.DigitsConsumed("integer", 3)
	m.DigitsConsumed("float", 16)

	f := gather(t, reg)["qrng_digits_consumed_total"]
	for _, metric := range f.GetMetric() {
		kind := metric.GetLabel()[0].GetValue()
		want := map[string]float64{"integer": 6, "float": 16}[kind]
		if got := metric.GetCounter().GetValue(); got != want {
			t.Errorf("digits_consumed_total{kind=%q} = %v, want %v", kind, got, want)
		}
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewWithRegistry(reg)

	defer func() {
		if recover() == nil {
			t.Error("second registration on the same registry should panic")
		}
	}()
	metrics.NewWithRegistry(reg)
}
