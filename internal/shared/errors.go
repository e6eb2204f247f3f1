package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a missing referenced entity.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation tags malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict tags unique constraint violations.
	ErrConflict = errors.New("conflict")
)

// ValidationError carries a human-readable reason for a rejected request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Is lets errors.Is match any ValidationError against ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError carries a human-readable reason for a uniqueness violation.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// Is lets errors.Is match any ConflictError against ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Conflictf builds a ConflictError from a format string.
func Conflictf(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// UserSafeMessage returns a message safe to show to API clients. Unexpected
// errors are collapsed so internal detail never leaks to the caller.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
		return err.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid credentials"
	default:
		return "Server error"
	}
}
