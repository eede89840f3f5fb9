package provider

import (
	"errors"
	"fmt"
)

// ProviderError is a malformed or unsuccessful provider response.
type ProviderError struct {
	Reason string
}

func (e *ProviderError) Error() string {
	return "provider error: " + e.Reason
}

// TransportError is a network failure, timeout or non-2xx HTTP status.
type TransportError struct {
	Op         string // "request", "decode", ...
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a timeout.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) {
		return t.Timeout()
	}
	return false
}

// IsProviderError returns true if err is or wraps a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsTransportError returns true if err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
