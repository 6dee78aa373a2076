package models

import (
	"errors"
	"fmt"
)

var (
	// ErrBudgetExceeded is returned when charging the winning campaign would
	// cross its daily or lifetime ceiling.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrStoreUnavailable wraps failures of the relational store.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrVideoNotFound = errors.New("video not found")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}
