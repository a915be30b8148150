package utils

import (
	"time"
)

// Iso8601Now returns the current time in ISO8601 format
func Iso8601Now() string {
	return Iso8601(time.Now())
}

// Iso8601 formats t in UTC as ISO8601
func Iso8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
