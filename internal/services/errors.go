package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ─── Error Taxonomy ───────────────────────────────────────────────────────────

var (
	// ErrValidation marks malformed or empty input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced entity id that does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a violated state-transition precondition, e.g. a book
	// that is already checked out or an item that is already returned.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized marks a checkout acted upon by a user it was not issued to.
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a recoverable failure returned by the services. Kind is one of the
// sentinel errors above and Message is meant for the caller as is.
//
// Anything else returned by a service is an unexpected fault (storage
// unavailable and the like) and should be treated as such.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func failf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return failf(ErrValidation, format, args...)
}

func notFoundf(format string, args ...any) error {
	return failf(ErrNotFound, format, args...)
}

func conflictf(format string, args ...any) error {
	return failf(ErrConflict, format, args...)
}

func unauthorizedf(format string, args ...any) error {
	return failf(ErrUnauthorized, format, args...)
}

// lookupErr turns a failed single-record lookup into a NotFound failure with
// the given message, or wraps any other storage error.
func lookupErr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundf(format, args...)
	}
	return fmt.Errorf("lookup: %w", err)
}

// IsFailure reports whether err is a recoverable service failure rather than
// an unexpected fault.
func IsFailure(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// isUniqueViolation reports whether err comes from a unique index, which is
// how a concurrent writer losing a race shows up.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// PostgreSQL error code 23505 = unique_violation.
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "UNIQUE constraint failed")
}
