package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel wrapped by every NotFoundError.
var ErrNotFound = errors.New("not found")

// ValidationError reports a missing or empty required argument. The caller
// must fix the request; these are never retried.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// RequiredField returns a ValidationError for the named argument.
func RequiredField(field string) error {
	return &ValidationError{Field: field}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError reports an unresolved project, agent or message key. It is
// distinct from validation: the request was well-formed but named an entity
// that does not exist.
type NotFoundError struct {
	Kind string // "project", "agent", "message"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
