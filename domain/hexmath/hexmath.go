// Package hexmath converts between numeric ranges and hex digit strings.
// All functions are deterministic - same input always produces same output.
package hexmath

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	// DefaultSpan is the range width used when a bound is omitted.
	DefaultSpan = 256

	// GuardDigits is the extra digit popped beyond the range's digit count.
	GuardDigits = 1

	// MaxDigits is the widest hex value that fits a uint64.
	MaxDigits = 16

	// FloatDigits is the hex width consumed for one float draw.
	FloatDigits = 16
)

// ErrInvalidRange is returned when max <= min or the range overflows.
var ErrInvalidRange = errors.New("invalid range")

// DigitsForRange returns ceil(log16(r)): the fewest hex digits whose value
// space covers r outcomes. Ranges of 0 or 1 need no digits.
func DigitsForRange(r uint64) int {
	digits := 0
	var span uint64 = 1
	for span < r {
		digits++
		if span > math.MaxUint64/16 {
			break
		}
		span *= 16
	}
	return digits
}

// DigitsToPop returns how many digits an integer draw over r consumes:
// the range digits plus the guard digit, capped at MaxDigits.
func DigitsToPop(r uint64) int {
	n := DigitsForRange(r) + GuardDigits
	if n > MaxDigits {
		n = MaxDigits
	}
	return n
}

// IsBase16Compatible reports whether r divides evenly into hex digit space,
// i.e. folding introduces no bias.
func IsBase16Compatible(r uint64) bool {
	switch r {
	case 1, 2, 4, 8:
		return true
	default:
		return r%16 == 0
	}
}

// Parse decodes up to MaxDigits hex characters. An empty string is 0.
func Parse(digits string) (uint64, error) {
	if digits == "" {
		return 0, nil
	}
	if len(digits) > MaxDigits {
		return 0, fmt.Errorf("hex value %q exceeds %d digits", digits, MaxDigits)
	}
	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex: %w", err)
	}
	return v, nil
}

// Span returns max-min as an unsigned width.
func Span(min, max int64) (uint64, error) {
	if max <= min {
		return 0, fmt.Errorf("%w: max %d must exceed min %d", ErrInvalidRange, max, min)
	}
	return uint64(max) - uint64(min), nil
}

// Fold maps v into [min, max). Values already inside the range are kept,
// everything else becomes min + v mod (max-min).
//
// The mapping is biased towards low values whenever the range is not
// base-16 compatible.
func Fold(min, max int64, v uint64) int64 {
	span := uint64(max) - uint64(min)
	if v <= math.MaxInt64 && int64(v) >= min && int64(v) < max {
		return int64(v)
	}
	return int64(uint64(min) + v%span)
}

// ResolveBounds applies the default range to omitted bounds: [0, 256) when
// both are nil, otherwise the missing bound is offset by DefaultSpan. A
// derived bound that would overflow int64 is an ErrInvalidRange.
func ResolveBounds(min, max *int64) (int64, int64, error) {
	switch {
	case min == nil && max == nil:
		return 0, DefaultSpan, nil
	case min == nil:
		if *max < math.MinInt64+DefaultSpan {
			return 0, 0, fmt.Errorf("%w: max %d leaves no room for the default span of %d", ErrInvalidRange, *max, DefaultSpan)
		}
		return *max - DefaultSpan, *max, nil
	case max == nil:
		if *min > math.MaxInt64-DefaultSpan {
			return 0, 0, fmt.Errorf("%w: min %d leaves no room for the default span of %d", ErrInvalidRange, *min, DefaultSpan)
		}
		return *min, *min + DefaultSpan, nil
	default:
		return *min, *max, nil
	}
}

// DecimalDigits returns the number of base-10 digits in v (1 for 0).
func DecimalDigits(v uint64) int {
	n := 1
	for v >= 10 {
		v /= 10
		n++
	}
	return n
}

// Normalize scales v into [0, 1) by dividing by 10^DecimalDigits(v).
// The result is not uniform over [0, 1).
func Normalize(v uint64) float64 {
	f := float64(v) / math.Pow10(DecimalDigits(v))
	if f >= 1 {
		// float64 rounding of 19-digit values can land on 10^19 exactly.
		return math.Nextafter(1, 0)
	}
	return f
}
