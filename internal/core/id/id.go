// Package id provides UUIDv7 generation for stock batches, sales and events.
// UUIDv7 is time-ordered, so comparing two IDs orders them by creation.
package id

import (
	"bytes"

	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7 (time-ordered UUID).
// The first 48 bits carry the Unix timestamp in milliseconds and the
// generator keeps IDs monotonic within the same millisecond, which makes
// the ID usable as a recency tie-breaker.
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to V4 if V7 fails (should never happen)
		return uuid.New()
	}
	return id
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks if ID is zero-value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}

// Compare orders IDs bytewise: -1 if a < b, 0 if equal, +1 if a > b.
// For UUIDv7 this is creation order.
func Compare(a, b ID) int {
	return bytes.Compare(a[:], b[:])
}
