// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// WithinWindow reports whether now falls inside [start, end]. Nil bounds are open.
func WithinWindow(now time.Time, start, end *time.Time) bool {
	if start != nil && start.After(now) {
		return false
	}
	if end != nil && end.Before(now) {
		return false
	}
	return true
}
