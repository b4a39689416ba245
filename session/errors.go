package session

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for malformed or policy-violating input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidPolicy is returned when the quorum/shares policy is not acceptable.
	ErrInvalidPolicy = fmt.Errorf("%w: invalid policy", ErrValidation)

	// ErrAlreadyAssigned is returned when a secret is submitted twice. The
	// secret of a session is write-once.
	ErrAlreadyAssigned = fmt.Errorf("%w: secret already assigned", ErrValidation)

	// ErrDenied is returned when a token does not resolve to a participant with
	// the required role, or when a joining alias is already taken.
	ErrDenied = errors.New("denied")

	// ErrCapacity is returned when a session already holds all its shareholders.
	ErrCapacity = errors.New("session is full")

	// ErrNotFound is returned for unknown session IDs.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned once the session TTL is exhausted.
	ErrExpired = errors.New("session expired")
)

// ErrorKind returns a stable short name for the error class of err, or
// "internal" when err matches none of the session errors.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDenied):
		return "denied"
	case errors.Is(err, ErrCapacity):
		return "capacity"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExpired):
		return "expired"
	default:
		return "internal"
	}
}
