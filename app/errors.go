package app

import (
	"errors"
	"fmt"

	"github.com/artpar/qrng/domain/hexmath"
)

var (
	// ErrUnavailable is returned when the buffer cannot supply the digits a
	// draw needs. In background mode this happens whenever the buffer is
	// short; in wait mode only after a refill has failed.
	ErrUnavailable = errors.New("random data unavailable")

	// ErrEmptySequence is returned by Choice on an empty slice.
	ErrEmptySequence = errors.New("empty sequence")

	// ErrClosed is returned once the generator has been closed.
	ErrClosed = errors.New("generator closed")

	// ErrInvalidRange is returned when max <= min.
	ErrInvalidRange = hexmath.ErrInvalidRange
)

// ConfigurationError reports an invalid construction parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IsConfigurationError returns true if err is or wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// panicError is a refill that ended in a provider panic.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("refill panicked: %v", e.value)
}
