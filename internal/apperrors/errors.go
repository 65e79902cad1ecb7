// Package apperrors holds the error taxonomy shared by services and handlers.
// Match with errors.Is; wrap with fmt.Errorf("...: %w", err).
package apperrors

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrAuth                 = errors.New("authentication failed")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrBackendUnavailable   = errors.New("backend unavailable")
)

// FieldErrors maps a field name to a human-readable message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (f FieldErrors) Unwrap() error {
	return ErrValidation
}

// Field builds a single-field validation error.
func Field(name, message string) FieldErrors {
	return FieldErrors{name: message}
}

// Unavailable marks err as a backend failure while keeping it in the chain.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &backendError{op: op, err: err}
}

type backendError struct {
	op  string
	err error
}

func (e *backendError) Error() string {
	return e.op + ": " + e.err.Error()
}

func (e *backendError) Unwrap() []error {
	return []error{ErrBackendUnavailable, e.err}
}
