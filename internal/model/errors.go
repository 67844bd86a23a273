package model

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned (wrapped with the entity name) when a lookup has no result
	ErrNotFound = errors.New("not found")
	// ErrBanned is returned when a banned user tries to change their data
	ErrBanned = errors.New("user is banned")
	// ErrUpstreamUnavailable wraps failures of outbound calls (Telegram)
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ValidationError describes input rejected before any state change
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field string, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFound(entity string) error {
	return errors.Wrap(ErrNotFound, entity)
}

// IsValidation reports whether err is (or wraps) a *ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// NewValidationError builds a *ValidationError for input checked outside this package
func NewValidationError(field string, format string, args ...interface{}) error {
	return invalid(field, format, args...)
}
