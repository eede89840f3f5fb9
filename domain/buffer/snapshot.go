package buffer

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ErrCorruptSnapshot is returned when a persisted buffer fails its checksum.
var ErrCorruptSnapshot = errors.New("buffer snapshot is corrupt")

// checksumLen is the number of hex characters of the BLAKE2b digest kept.
const checksumLen = 16

// EncodeSnapshot serializes digits for a key-value store as
// "<checksum>:<digits>".
func EncodeSnapshot(digits string) string {
	return checksum(digits) + ":" + digits
}

// DecodeSnapshot verifies and unwraps a value written by EncodeSnapshot.
// An empty value decodes to an empty buffer.
func DecodeSnapshot(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	sum, digits, ok := strings.Cut(value, ":")
	if !ok || len(sum) != checksumLen {
		return "", ErrCorruptSnapshot
	}
	if checksum(digits) != sum {
		return "", ErrCorruptSnapshot
	}
	if !IsHex(digits) {
		return "", ErrCorruptSnapshot
	}
	return digits, nil
}

// IsHex reports whether s consists only of hex digits.
func IsHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func checksum(digits string) string {
	sum := blake2b.Sum256([]byte(digits))
	return hex.EncodeToString(sum[:])[:checksumLen]
}
