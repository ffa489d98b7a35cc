// Package apierr defines the shared error taxonomy used by every service's
// use-case layer. HTTP edges map these sentinel errors to status codes
// (see the respective service's api.mapError); the taxonomy itself never
// imports net/http so it stays usable from CLI entrypoints too.
package apierr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when a uniqueness invariant would be violated.
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrConflict is returned when an operation cannot proceed because of
	// concurrent modification or an invalid state transition.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is returned when the shared-secret header is missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller's role set does not satisfy a route's requirement.
	ErrForbidden = errors.New("forbidden")

	// ErrExternal is returned when a downstream dependency (store, blob, detector,
	// probe) fails in a way that prevents the request from completing.
	ErrExternal = errors.New("external dependency failure")
)

// ValidationError reports a rejected value-object or request field.
// errors.As(err, &ValidationError{}) lets edges render field-level detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err (or something it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundf wraps ErrNotFound with a formatted, entity-specific message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// Externalf wraps ErrExternal with a formatted message, preserving the underlying cause.
func Externalf(cause error, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), ErrExternal, cause)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err wraps ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsAlreadyExists reports whether err wraps ErrAlreadyExists.
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// IsExternal reports whether err wraps ErrExternal.
func IsExternal(err error) bool { return errors.Is(err, ErrExternal) }

// IsUnauthorized reports whether err wraps ErrUnauthorized.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsForbidden reports whether err wraps ErrForbidden.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }
