package store

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with a unique constraint,
// such as registering the same folder path or category name twice.
var ErrDuplicate = errors.New("already registered")

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
