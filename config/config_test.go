package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/qrng/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
provider:
  mode: "remote"
  url: "https://qrng.example.com/api"
  timeout: 15s
  max_block_size: 8
  max_array_size: 512
  headers:
    X-Api-Key: "secret"

cache:
  size: 4096
  refill_mode: "wait"
  warmup_timeout: 5s

store:
  driver: "sqlite"
  dsn: ":memory:"

server:
  host: "127.0.0.1"
  port: 9090

logging:
  level: "debug"
  format: "console"

metrics:
  enabled: true
`

	cfg := writeAndLoad(t, content)

	if cfg.Provider.URL != "https://qrng.example.com/api" {
		t.Errorf("Provider.URL = %s", cfg.Provider.URL)
	}
	if cfg.Provider.Timeout != 15*time.Second {
		t.Errorf("Provider.Timeout = %v, want 15s", cfg.Provider.Timeout)
	}
	if cfg.Provider.MaxBlockSize != 8 || cfg.Provider.MaxArraySize != 512 {
		t.Errorf("limits = %d/%d, want 8/512", cfg.Provider.MaxBlockSize, cfg.Provider.MaxArraySize)
	}
	if cfg.Provider.Headers["X-Api-Key"] != "secret" {
		t.Errorf("Provider.Headers = %v", cfg.Provider.Headers)
	}
	if cfg.Cache.Size != 4096 {
		t.Errorf("Cache.Size = %d, want 4096", cfg.Cache.Size)
	}
	if cfg.Cache.RefillMode != "wait" {
		t.Errorf("Cache.RefillMode = %s, want wait", cfg.Cache.RefillMode)
	}
	if cfg.Cache.WarmupTimeout != 5*time.Second {
		t.Errorf("Cache.WarmupTimeout = %v, want 5s", cfg.Cache.WarmupTimeout)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != ":memory:" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("Server = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "logging:\n  level: info\n")

	if cfg.Provider.Mode != "remote" {
		t.Errorf("default Provider.Mode = %s, want remote", cfg.Provider.Mode)
	}
	if cfg.Provider.URL != config.DefaultProviderURL {
		t.Errorf("default Provider.URL = %s", cfg.Provider.URL)
	}
	if cfg.Provider.Timeout != 10*time.Second {
		t.Errorf("default Provider.Timeout = %v, want 10s", cfg.Provider.Timeout)
	}
	if cfg.Provider.MaxBlockSize != 10 || cfg.Provider.MaxArraySize != 1024 {
		t.Errorf("default limits = %d/%d, want 10/1024", cfg.Provider.MaxBlockSize, cfg.Provider.MaxArraySize)
	}
	if cfg.Cache.Size != 1000 {
		t.Errorf("default Cache.Size = %d, want 1000", cfg.Cache.Size)
	}
	if cfg.Cache.RefillMode != "background" {
		t.Errorf("default Cache.RefillMode = %s, want background", cfg.Cache.RefillMode)
	}
	if cfg.Store.Driver != "none" {
		t.Errorf("default Store.Driver = %s, want none", cfg.Store.Driver)
	}
	if cfg.Store.Key != "_qrng_cache" {
		t.Errorf("default Store.Key = %s, want _qrng_cache", cfg.Store.Key)
	}
	if cfg.Store.FlushInterval != time.Second {
		t.Errorf("default Store.FlushInterval = %v, want 1s", cfg.Store.FlushInterval)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("default Server = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default Logging.Format = %s, want json", cfg.Logging.Format)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("default Metrics.Path = %s, want /metrics", cfg.Metrics.Path)
	}
}

func TestLoad_StoreDSNDefaults(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"sqlite", "qrng.db"},
		{"bolt", "qrng.bolt"},
		{"memory", ""},
		{"none", ""},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := writeAndLoad(t, "store:\n  driver: "+tt.driver+"\n")
			if cfg.Store.DSN != tt.want {
				t.Errorf("Store.DSN = %q, want %q", cfg.Store.DSN, tt.want)
			}
		})
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_QRNG_URL", "http://env-test:3000/qrng")

	cfg := writeAndLoad(t, `
provider:
  url: "${TEST_QRNG_URL}"
`)

	if cfg.Provider.URL != "http://env-test:3000/qrng" {
		t.Errorf("Provider.URL = %s, want http://env-test:3000/qrng", cfg.Provider.URL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{"provider mode", "provider:\n  mode: quantum\n", "provider.mode"},
		{"negative block size", "provider:\n  max_block_size: -1\n", "max_block_size"},
		{"negative array size", "provider:\n  max_array_size: -1\n", "max_array_size"},
		{"negative timeout", "provider:\n  timeout: -1s\n", "provider.timeout"},
		{"negative cache size", "cache:\n  size: -10\n", "cache.size"},
		{"refill mode", "cache:\n  refill_mode: eventually\n", "cache.refill_mode"},
		{"store driver", "store:\n  driver: redis\n", "store.driver"},
		{"negative flush interval", "store:\n  flush_interval: -1s\n", "store.flush_interval"},
		{"log format", "logging:\n  format: xml\n", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := writeAndLoadErr(t, tt.content)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error = %v, want mention of %s", err, tt.errPart)
			}
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := writeAndLoadErr(t, "provider: [unclosed"); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := config.Load("/nonexistent/qrng.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QRNG_PROVIDER_MODE", "local")
	t.Setenv("QRNG_PROVIDER_TIMEOUT", "3s")
	t.Setenv("QRNG_PROVIDER_MAX_BLOCK_SIZE", "4")
	t.Setenv("QRNG_PROVIDER_MAX_ARRAY_SIZE", "64")
	t.Setenv("QRNG_CACHE_SIZE", "256")
	t.Setenv("QRNG_CACHE_REFILL_MODE", "wait")
	t.Setenv("QRNG_CACHE_WARMUP_TIMEOUT", "1m")
	t.Setenv("QRNG_STORE_DRIVER", "bolt")
	t.Setenv("QRNG_STORE_DSN", "/tmp/env-test.bolt")
	t.Setenv("QRNG_STORE_KEY", "custom")
	t.Setenv("QRNG_STORE_FLUSH_INTERVAL", "250ms")
	t.Setenv("QRNG_SERVER_PORT", "9999")
	t.Setenv("QRNG_LOG_LEVEL", "debug")
	t.Setenv("QRNG_METRICS_ENABLED", "true")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}

	if cfg.Provider.Mode != "local" {
		t.Errorf("Provider.Mode = %s, want local", cfg.Provider.Mode)
	}
	if cfg.Provider.Timeout != 3*time.Second {
		t.Errorf("Provider.Timeout = %v, want 3s", cfg.Provider.Timeout)
	}
	if cfg.Provider.MaxBlockSize != 4 || cfg.Provider.MaxArraySize != 64 {
		t.Errorf("limits = %d/%d, want 4/64", cfg.Provider.MaxBlockSize, cfg.Provider.MaxArraySize)
	}
	if cfg.Cache.Size != 256 || cfg.Cache.RefillMode != "wait" || cfg.Cache.WarmupTimeout != time.Minute {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Store.Driver != "bolt" || cfg.Store.DSN != "/tmp/env-test.bolt" || cfg.Store.Key != "custom" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Store.FlushInterval != 250*time.Millisecond {
		t.Errorf("Store.FlushInterval = %v, want 250ms", cfg.Store.FlushInterval)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("QRNG_SERVER_PORT", "7777")
	t.Setenv("QRNG_LOG_LEVEL", "error")

	cfg := writeAndLoad(t, `
provider:
  url: "http://localhost:3000/qrng"
server:
  port: 8080
logging:
  level: "info"
`)

	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %s, want error (env override)", cfg.Logging.Level)
	}
	if cfg.Provider.URL != "http://localhost:3000/qrng" {
		t.Errorf("Provider.URL = %s, want file value", cfg.Provider.URL)
	}
}

func TestEnvOverrides_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("QRNG_SERVER_PORT", "not-a-number")
	t.Setenv("QRNG_SERVER_READ_TIMEOUT", "not-a-duration")
	t.Setenv("QRNG_CACHE_SIZE", "lots")
	t.Setenv("QRNG_PROVIDER_TIMEOUT", "soon")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080 (default)", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s (default)", cfg.Server.ReadTimeout)
	}
	if cfg.Cache.Size != 1000 {
		t.Errorf("Cache.Size = %d, want 1000 (default)", cfg.Cache.Size)
	}
	if cfg.Provider.Timeout != 10*time.Second {
		t.Errorf("Provider.Timeout = %v, want 10s (default)", cfg.Provider.Timeout)
	}
}

func TestLoadWithFallback_FileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  size: 321\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Cache.Size != 321 {
		t.Errorf("Cache.Size = %d, want 321", cfg.Cache.Size)
	}
}

func TestLoadWithFallback_EnvOnly(t *testing.T) {
	t.Setenv("QRNG_CACHE_SIZE", "654")

	cfg, err := config.LoadWithFallback("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Cache.Size != 654 {
		t.Errorf("Cache.Size = %d, want 654", cfg.Cache.Size)
	}
}

func TestLoadWithFallback_EmptyPath(t *testing.T) {
	cfg, err := config.LoadWithFallback("")
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Cache.Size != 1000 {
		t.Errorf("Cache.Size = %d, want 1000", cfg.Cache.Size)
	}
}

func TestParseBoolValues(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"no", false},
		{"off", false},
		{"invalid", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("QRNG_METRICS_ENABLED", tt.value)

			cfg, err := config.LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv error: %v", err)
			}
			if cfg.Metrics.Enabled != tt.expected {
				t.Errorf("value=%q: Metrics.Enabled = %v, want %v", tt.value, cfg.Metrics.Enabled, tt.expected)
			}
		})
	}
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return config.Load(path)
}
