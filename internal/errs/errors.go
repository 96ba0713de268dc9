// Package errs defines the rejection kinds surfaced by the reservation engine
// and their mapping to HTTP status codes.
package errs

import (
	"errors"
	"net/http"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrCapacity     = errors.New("capacity exceeded")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrPersistence  = errors.New("persistence failure")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a rejection carrying one human-readable reason.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, reason string) error {
	return &Error{Kind: kind, Reason: reason}
}

func Validation(reason string) error { return New(ErrValidation, reason) }

func Capacity(reason string) error { return New(ErrCapacity, reason) }

func NotFound(reason string) error { return New(ErrNotFound, reason) }

func Forbidden(reason string) error { return New(ErrForbidden, reason) }

// Persistence never exposes the underlying cause.
func Persistence() error { return New(ErrPersistence, ErrPersistence.Error()) }

// IsRejection reports whether err is a domain rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Reason returns the human-readable reason of a rejection, or a generic
// message for anything else.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "internal error"
}

// ToHTTP maps err to the HTTP status of its kind.
func ToHTTP(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCapacity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
