// Package errs defines the error taxonomy shared by every layer.
//
// Callers switch on Kind (via KindOf) or test sentinels with errors.Is.
// Storage and driver errors are wrapped, never returned bare across the
// service boundary.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation               = errors.New("invalid input")
	ErrInsufficientParticipants = errors.New("at least two participants are required")
	ErrNotFound                 = errors.New("not found")
	ErrInvalidToken             = errors.New("invalid token")
	// ErrConflict is reserved for re-assigning an already matched group.
	ErrConflict = errors.New("conflict")
)

// Kind classifies an error for callers that must handle every case.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInsufficientParticipants
	KindNotFound
	KindInvalidToken
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInsufficientParticipants:
		return "insufficient_participants"
	case KindNotFound:
		return "not_found"
	case KindInvalidToken:
		return "invalid_token"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// KindOf returns the most specific kind in err's chain.
// A FieldError about participant count is a validation error first.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInsufficientParticipants):
		return KindInsufficientParticipants
	case errors.Is(err, ErrInvalidToken):
		return KindInvalidToken
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// FieldError describes a rejected input field.
type FieldError struct {
	Field  string
	Reason string
	cause  error
}

// Invalid returns a validation error for field.
func Invalid(field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason}
}

// TooFewParticipants is the validation error for a group with fewer than two
// usable names. It matches both ErrValidation and ErrInsufficientParticipants.
func TooFewParticipants(got int) *FieldError {
	return &FieldError{
		Field:  "participant_names",
		Reason: fmt.Sprintf("need at least 2 non-empty names, got %d", got),
		cause:  ErrInsufficientParticipants,
	}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrValidation, e.cause}
	}
	return []error{ErrValidation}
}

// NotFound wraps ErrNotFound with the missing entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}
