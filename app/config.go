package app

import (
	"fmt"
	"time"

	"github.com/artpar/qrng/domain/buffer"
	"github.com/artpar/qrng/domain/sizing"
)

// RefillMode selects how draws behave when the buffer runs short.
type RefillMode string

const (
	// RefillBackground tops the buffer up asynchronously and never blocks a
	// draw; a short buffer yields ErrUnavailable.
	RefillBackground RefillMode = "background"

	// RefillWait suspends a draw until a refill resolves.
	RefillWait RefillMode = "wait"
)

// ParseRefillMode parses a mode name. The empty string is background.
func ParseRefillMode(s string) (RefillMode, error) {
	switch RefillMode(s) {
	case "", RefillBackground:
		return RefillBackground, nil
	case RefillWait:
		return RefillWait, nil
	default:
		return "", fmt.Errorf("unknown refill mode %q", s)
	}
}

// DefaultStoreKey is the key the buffer is persisted under.
const DefaultStoreKey = "_qrng_cache"

// Config configures a Generator.
// Start from DefaultConfig; zero capacities are rejected, not defaulted.
type Config struct {
	// CacheSize is the target number of buffered hex digits.
	CacheSize int

	// Limits are the provider's block size and array size ceilings.
	Limits sizing.Limits

	// Mode selects background or wait refills.
	Mode RefillMode

	// FetchTimeout bounds each provider call. Zero means no timeout
	// beyond the provider's own.
	FetchTimeout time.Duration

	// StoreKey is the persistence key. Empty means DefaultStoreKey.
	StoreKey string

	// PersistInterval is how often draws are flushed to the store.
	// Refills are persisted as they complete. Zero disables the periodic
	// flush; pending draws are then written only by Flush and Close.
	PersistInterval time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CacheSize:    buffer.DefaultCacheSize,
		Limits:       sizing.DefaultLimits(),
		Mode:         RefillBackground,
		FetchTimeout: 10 * time.Second,
		StoreKey:     DefaultStoreKey,

		PersistInterval: time.Second,
	}
}

// Validate returns a *ConfigurationError describing the first invalid field.
func (c Config) Validate() error {
	if err := (buffer.Config{CacheSize: c.CacheSize}).Validate(); err != nil {
		return &ConfigurationError{Field: "cache_size", Reason: err.Error()}
	}
	if c.Limits.MaxBlockSize <= 0 {
		return &ConfigurationError{Field: "max_block_size", Reason: "must be positive"}
	}
	if c.Limits.MaxArraySize <= 0 {
		return &ConfigurationError{Field: "max_array_size", Reason: "must be positive"}
	}
	if _, err := ParseRefillMode(string(c.Mode)); err != nil {
		return &ConfigurationError{Field: "refill_mode", Reason: err.Error()}
	}
	if c.FetchTimeout < 0 {
		return &ConfigurationError{Field: "fetch_timeout", Reason: "must not be negative"}
	}
	if c.PersistInterval < 0 {
		return &ConfigurationError{Field: "persist_interval", Reason: "must not be negative"}
	}
	return nil
}

func (c Config) storeKey() string {
	if c.StoreKey == "" {
		return DefaultStoreKey
	}
	return c.StoreKey
}
