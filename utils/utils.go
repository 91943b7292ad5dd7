// Package utils provides utility functions for the application.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// IsFalse reports whether b is set and false. A nil pointer is not false.
func IsFalse(b *bool) bool {
	return b != nil && !*b
}

// ParseUUID parses a UUID string after trimming surrounding whitespace
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// FirstN returns at most n leading items of s
func FirstN[T any](s []T, n int) []T {
	if n < 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
