package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apihttp "github.com/artpar/qrng/adapters/http"
	"github.com/artpar/qrng/adapters/metrics"
	"github.com/artpar/qrng/adapters/random"
	"github.com/artpar/qrng/app"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

type response struct {
	Data struct {
		Type       string         `json:"type"`
		ID         string         `json:"id"`
		Attributes map[string]any `json:"attributes"`
	} `json:"data"`
	Errors []struct {
		Status string `json:"status"`
		Code   string `json:"code"`
		Source *struct {
			Parameter string `json:"parameter"`
		} `json:"source"`
	} `json:"errors"`
	Meta map[string]any `json:"meta"`
}

func newGenerator(t *testing.T, mode app.RefillMode, p *random.Fake) *app.Generator {
	t.Helper()

	cfg := app.DefaultConfig()
	cfg.CacheSize = 100
	cfg.Mode = mode
	cfg.FetchTimeout = time.Second

	g, err := app.NewGenerator(context.Background(), cfg, app.Deps{
		Provider: p,
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewGenerator error: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func newRouter(g *app.Generator) http.Handler {
	return apihttp.NewRouter(
		apihttp.NewRandomHandler(g, zerolog.Nop()),
		apihttp.NewHealthHandler(g),
		zerolog.Nop(),
	)
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
		}
	}
	return rec, resp
}

func TestRandomHandler_Draws(t *testing.T) {
	h := newRouter(newGenerator(t, app.RefillWait, random.NewFake().WithPattern("f")))

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantType string
		want     any
	}{
		{"integer default bounds", "GET", "/v1/integer", "", "integer", float64(255)},
		{"integer with bounds", "GET", "/v1/integer?min=0&max=10", "", "integer", float64(5)},
		{"integer single value", "GET", "/v1/integer?min=7&max=8", "", "integer", float64(7)},
		{"hex", "GET", "/v1/hex?length=8", "", "hex", "ffffffff"},
		{"hex default length", "GET", "/v1/hex", "", "hex", "ffffff"},
		{"boolean", "GET", "/v1/boolean", "", "boolean", true},
		{"average integer", "GET", "/v1/average/integer?min=0&max=16&iterations=3", "", "average_integer", float64(15)},
		{"choice", "POST", "/v1/choice", `{"items":["a","b","c"]}`, "choice", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, h, tt.method, tt.target, tt.body)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
			}
			if resp.Data.Type != tt.wantType {
				t.Errorf("type = %q, want %q", resp.Data.Type, tt.wantType)
			}
			if resp.Data.ID == "" {
				t.Error("missing resource id")
			}
			if got := resp.Data.Attributes["value"]; got != tt.want {
				t.Errorf("value = %v (%T), want %v", got, got, tt.want)
			}
		})
	}
}

func TestRandomHandler_Float(t *testing.T) {
	h := newRouter(newGenerator(t, app.RefillWait, random.NewFake().WithPattern("0")))

	rec, resp := do(t, h, "GET", "/v1/float", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if v := resp.Data.Attributes["value"]; v != float64(0) {
		t.Errorf("value = %v, want 0", v)
	}

	rec, resp = do(t, h, "GET", "/v1/average/float?iterations=4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if v := resp.Data.Attributes["iterations"]; v != float64(4) {
		t.Errorf("iterations = %v, want 4", v)
	}
}

func TestRandomHandler_Shuffle(t *testing.T) {
	h := newRouter(newGenerator(t, app.RefillWait, random.NewFake().WithPattern("0")))

	rec, resp := do(t, h, "POST", "/v1/shuffle", `{"items":[1,{"k":"v"},"z"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	items, ok := resp.Data.Attributes["items"].([]any)
	if !ok || len(items) != 3 {
		t.Fatalf("items = %v", resp.Data.Attributes["items"])
	}
	if items[0] != float64(1) || items[2] != "z" {
		t.Errorf("items = %v, want original order for an all-zero draw", items)
	}
	if obj, ok := items[1].(map[string]any); !ok || obj["k"] != "v" {
		t.Errorf("items[1] = %v, want {k: v}", items[1])
	}
}

func TestRandomHandler_BadRequests(t *testing.T) {
	h := newRouter(newGenerator(t, app.RefillWait, random.NewFake()))

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantCode   string
		wantParam  string
	}{
		{"non-integer min", "GET", "/v1/integer?min=abc", "", 400, "invalid_parameter", "min"},
		{"empty range", "GET", "/v1/integer?min=5&max=5", "", 400, "invalid_parameter", "max"},
		{"inverted range", "GET", "/v1/average/integer?min=10&max=1", "", 400, "invalid_parameter", "max"},
		{"default span underflows", "GET", "/v1/integer?max=-9223372036854775800", "", 400, "invalid_parameter", "max"},
		{"average default span underflows", "GET", "/v1/average/integer?max=-9223372036854775800", "", 400, "invalid_parameter", "max"},
		{"zero hex length", "GET", "/v1/hex?length=0", "", 400, "invalid_parameter", "length"},
		{"hex length too large", "GET", "/v1/hex?length=5000", "", 400, "invalid_parameter", "length"},
		{"too many iterations", "GET", "/v1/average/float?iterations=20000", "", 400, "invalid_parameter", "iterations"},
		{"malformed body", "POST", "/v1/choice", `not json`, 400, "bad_request", ""},
		{"empty choice", "POST", "/v1/choice", `{"items":[]}`, 422, "validation_error", ""},
		{"unknown route", "GET", "/v1/nope", "", 404, "not_found", ""},
		{"wrong method", "POST", "/health", "", 405, "method_not_allowed", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, h, tt.method, tt.target, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if len(resp.Errors) != 1 {
				t.Fatalf("errors = %+v, want one", resp.Errors)
			}
			if resp.Errors[0].Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Errors[0].Code, tt.wantCode)
			}
			if tt.wantParam != "" {
				if resp.Errors[0].Source == nil || resp.Errors[0].Source.Parameter != tt.wantParam {
					t.Errorf("source = %+v, want parameter %q", resp.Errors[0].Source, tt.wantParam)
				}
			}
		})
	}
}

func TestRandomHandler_UnavailableIs503(t *testing.T) {
	f := random.NewFake()
	f.Hold()
	defer f.Release()

	g := newGenerator(t, app.RefillBackground, f)
	h := newRouter(g)

	rec, resp := do(t, h, "GET", "/v1/integer", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Code != "service_unavailable" {
		t.Errorf("errors = %+v", resp.Errors)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.api+json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHealthHandler(t *testing.T) {
	f := random.NewFake()
	f.Hold()

	g := newGenerator(t, app.RefillBackground, f)
	h := newRouter(g)

	if rec, _ := do(t, h, "GET", "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("liveness status = %d, want 200", rec.Code)
	}
	if rec, _ := do(t, h, "GET", "/health/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness before fill = %d, want 503", rec.Code)
	}

	f.Release()
	if err := g.Refill(context.Background()); err != nil {
		t.Fatalf("Refill error: %v", err)
	}

	rec, resp := do(t, h, "GET", "/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("readiness after fill = %d, want 200", rec.Code)
	}
	if resp.Meta["status"] != "ok" {
		t.Errorf("meta = %v", resp.Meta)
	}
}

func TestRandomHandler_Stats(t *testing.T) {
	g := newGenerator(t, app.RefillWait, random.NewFake())
	h := newRouter(g)

	rec, resp := do(t, h, "GET", "/v1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	attrs := resp.Data.Attributes
	if attrs["capacity"] != float64(100) {
		t.Errorf("capacity = %v, want 100", attrs["capacity"])
	}
	if attrs["ready"] != true {
		t.Errorf("ready = %v, want true", attrs["ready"])
	}
	if attrs["mode"] != "wait" {
		t.Errorf("mode = %v, want wait", attrs["mode"])
	}
	if _, ok := attrs["last_refill"]; !ok {
		t.Error("missing last_refill")
	}
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	g := newGenerator(t, app.RefillWait, random.NewFake())
	h := apihttp.NewRouterWithConfig(
		apihttp.NewRandomHandler(g, zerolog.Nop()),
		apihttp.NewHealthHandler(g),
		zerolog.Nop(),
		apihttp.RouterConfig{
			Metrics:        m,
			MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		},
	)

	do(t, h, "GET", "/v1/boolean", "")
	do(t, h, "GET", "/v1/boolean", "")
	do(t, h, "GET", "/v1/integer?min=abc", "")
	do(t, h, "GET", "/health", "")

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/v1/boolean", "2xx")); got != 2 {
		t.Errorf("boolean 2xx = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/v1/integer", "4xx")); got != 1 {
		t.Errorf("integer 4xx = %v, want 1", got)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "qrng_http_requests_total") {
		t.Error("metrics output missing qrng_http_requests_total")
	}
	if strings.Contains(rec.Body.String(), `route="/health"`) {
		t.Error("health checks should not be recorded")
	}
}
