// Package apperr defines the error taxonomy shared by every layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a handle with no resolvable record or no live matching link.
	ErrNotFound = errors.New("not found")
	// ErrValidation reports a payload or argument that fails structural checks.
	ErrValidation = errors.New("validation failed")
	// ErrUnavailable reports a record store or link index that could not complete a call.
	ErrUnavailable = errors.New("store unavailable")
)

// Unavailable wraps cause so that it matches both ErrUnavailable and cause.
func Unavailable(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, cause)
}

// Invalid wraps cause as a validation failure.
func Invalid(cause error) error {
	return fmt.Errorf("%w: %w", ErrValidation, cause)
}
