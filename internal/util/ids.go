// Package util provides id generation, randomness and environment helpers
// shared across FarmGenius components.
package util

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewClientID returns a fresh browser client identifier.
func NewClientID() string {
	return uuid.NewString()
}

// NewTurnID returns a lexically sortable id for a chat turn, so turns read
// back from storage order the same way they were appended.
func NewTurnID() string {
	return ulid.Make().String()
}

// NewActionID returns a short id for an in-flight simulated action.
func NewActionID() string {
	return "act_" + GenerateRandomHex(16)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Not suitable for secrets.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// RandomIntRange returns a pseudo-random int in [lo, hi]. If hi < lo the
// bounds are swapped.
func RandomIntRange(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + rand.IntN(hi-lo+1)
}
