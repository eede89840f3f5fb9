// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultProviderURL is the public QRNG endpoint.
const DefaultProviderURL = "https://api.shitchell.com/qrng"

// Config is the root configuration structure.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Cache    CacheConfig    `yaml:"cache"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ProviderConfig configures the random-number provider.
// Use "remote" for the HTTP provider or "local" for crypto/rand.
type ProviderConfig struct {
	Mode         string            `yaml:"mode"` // "remote" or "local"
	URL          string            `yaml:"url"`
	Timeout      time.Duration     `yaml:"timeout"`
	MaxBlockSize int               `yaml:"max_block_size"`
	MaxArraySize int               `yaml:"max_array_size"`
	Headers      map[string]string `yaml:"headers,omitempty"`
}

// CacheConfig configures the digit buffer.
type CacheConfig struct {
	Size          int           `yaml:"size"`        // Target buffered hex digits
	RefillMode    string        `yaml:"refill_mode"` // "background" or "wait"
	WarmupTimeout time.Duration `yaml:"warmup_timeout"`
}

// StoreConfig configures buffer persistence.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "none", "memory", "sqlite" or "bolt"
	DSN    string `yaml:"dsn"`
	Key    string `yaml:"key"`

	// FlushInterval is how often draws are written to the store.
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	QRNG_PROVIDER_MODE            - remote or local (default: remote)
//	QRNG_PROVIDER_URL             - Provider URL (default: public QRNG API)
//	QRNG_PROVIDER_TIMEOUT         - Per-request timeout (default: 10s)
//	QRNG_PROVIDER_MAX_BLOCK_SIZE  - Block size ceiling (default: 10)
//	QRNG_PROVIDER_MAX_ARRAY_SIZE  - Block count ceiling (default: 1024)
//	QRNG_CACHE_SIZE               - Buffered hex digits (default: 1000)
//	QRNG_CACHE_REFILL_MODE        - background or wait (default: background)
//	QRNG_CACHE_WARMUP_TIMEOUT     - Warm-up retry budget (default: 30s)
//	QRNG_STORE_DRIVER             - none, memory, sqlite or bolt (default: none)
//	QRNG_STORE_DSN                - Store path
//	QRNG_STORE_KEY                - Persistence key (default: _qrng_cache)
//	QRNG_STORE_FLUSH_INTERVAL     - Draw flush interval (default: 1s)
//	QRNG_SERVER_HOST              - Server host (default: 0.0.0.0)
//	QRNG_SERVER_PORT              - Server port (default: 8080)
//	QRNG_LOG_LEVEL                - debug, info, warn, error (default: info)
//	QRNG_LOG_FORMAT               - json or console (default: json)
//	QRNG_METRICS_ENABLED          - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads from path when the file exists, otherwise from the
// environment. Every setting has a default, so the fallback always works.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies QRNG_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Provider configuration
	if v := os.Getenv("QRNG_PROVIDER_MODE"); v != "" {
		cfg.Provider.Mode = v
	}
	if v := os.Getenv("QRNG_PROVIDER_URL"); v != "" {
		cfg.Provider.URL = v
	}
	if v := os.Getenv("QRNG_PROVIDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Provider.Timeout = d
		}
	}
	if v := os.Getenv("QRNG_PROVIDER_MAX_BLOCK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Provider.MaxBlockSize = n
		}
	}
	if v := os.Getenv("QRNG_PROVIDER_MAX_ARRAY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Provider.MaxArraySize = n
		}
	}

	// Cache configuration
	if v := os.Getenv("QRNG_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Size = n
		}
	}
	if v := os.Getenv("QRNG_CACHE_REFILL_MODE"); v != "" {
		cfg.Cache.RefillMode = v
	}
	if v := os.Getenv("QRNG_CACHE_WARMUP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.WarmupTimeout = d
		}
	}

	// Store configuration
	if v := os.Getenv("QRNG_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("QRNG_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("QRNG_STORE_KEY"); v != "" {
		cfg.Store.Key = v
	}
	if v := os.Getenv("QRNG_STORE_FLUSH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.FlushInterval = d
		}
	}

	// Server configuration
	if v := os.Getenv("QRNG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("QRNG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QRNG_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("QRNG_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Logging configuration
	if v := os.Getenv("QRNG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QRNG_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("QRNG_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("QRNG_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Provider.Mode == "" {
		cfg.Provider.Mode = "remote"
	}
	if cfg.Provider.URL == "" {
		cfg.Provider.URL = DefaultProviderURL
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 10 * time.Second
	}
	if cfg.Provider.MaxBlockSize == 0 {
		cfg.Provider.MaxBlockSize = 10
	}
	if cfg.Provider.MaxArraySize == 0 {
		cfg.Provider.MaxArraySize = 1024
	}

	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = 1000
	}
	if cfg.Cache.RefillMode == "" {
		cfg.Cache.RefillMode = "background"
	}
	if cfg.Cache.WarmupTimeout == 0 {
		cfg.Cache.WarmupTimeout = 30 * time.Second
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "none"
	}
	if cfg.Store.DSN == "" {
		switch cfg.Store.Driver {
		case "sqlite":
			cfg.Store.DSN = "qrng.db"
		case "bolt":
			cfg.Store.DSN = "qrng.bolt"
		}
	}
	if cfg.Store.Key == "" {
		cfg.Store.Key = "_qrng_cache"
	}
	if cfg.Store.FlushInterval == 0 {
		cfg.Store.FlushInterval = time.Second
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	validProviderModes := map[string]bool{"remote": true, "local": true}
	if !validProviderModes[cfg.Provider.Mode] {
		return fmt.Errorf("provider.mode must be 'remote' or 'local', got %q", cfg.Provider.Mode)
	}
	if cfg.Provider.Timeout < 0 {
		return fmt.Errorf("provider.timeout must not be negative")
	}
	if cfg.Provider.MaxBlockSize < 0 {
		return fmt.Errorf("provider.max_block_size must be positive, got %d", cfg.Provider.MaxBlockSize)
	}
	if cfg.Provider.MaxArraySize < 0 {
		return fmt.Errorf("provider.max_array_size must be positive, got %d", cfg.Provider.MaxArraySize)
	}

	if cfg.Cache.Size < 0 {
		return fmt.Errorf("cache.size must be positive, got %d", cfg.Cache.Size)
	}
	validRefillModes := map[string]bool{"background": true, "wait": true}
	if !validRefillModes[cfg.Cache.RefillMode] {
		return fmt.Errorf("cache.refill_mode must be 'background' or 'wait', got %q", cfg.Cache.RefillMode)
	}

	validDrivers := map[string]bool{"none": true, "memory": true, "sqlite": true, "bolt": true}
	if !validDrivers[cfg.Store.Driver] {
		return fmt.Errorf("store.driver must be one of: none, memory, sqlite, bolt")
	}
	if cfg.Store.FlushInterval < 0 {
		return fmt.Errorf("store.flush_interval must not be negative")
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
