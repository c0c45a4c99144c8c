// Package id provides UUIDv7 identifiers for property assignments and entities.
package id

import (
	"github.com/google/uuid"
)

// ID identifies assignments, property types and entities.
type ID = uuid.UUID

// New generates a time-ordered UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
