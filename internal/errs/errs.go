// Package errs defines the error taxonomy shared by the query, resource and
// store layers.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match these via errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrBackend      = errors.New("backend failure")
)

// ValidationError reports malformed client input: identifiers, pagination,
// sort, filter or projection attributes, or missing creation fields.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return "invalid input: " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotFoundError reports that no row matched an identifier lookup.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// BackendError wraps a failure from the persistence engine. The cause is
// meant for operator logs only.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Invalid creates a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a NotFoundError.
func NotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// Backend wraps err as a BackendError. A nil err yields nil.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalid reports whether err is a validation error.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsBackend reports whether err originated in the persistence engine.
func IsBackend(err error) bool {
	return errors.Is(err, ErrBackend)
}
