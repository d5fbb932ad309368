package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns to a caller wraps exactly one of them.
var (
	ErrInvalidInput         = errors.New("invalid_input")
	ErrNotFound             = errors.New("not_found")
	ErrInsufficientCapacity = errors.New("insufficient_capacity")
	ErrNotEligible          = errors.New("not_eligible")
	ErrAlreadyReviewed      = errors.New("already_reviewed")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrConflict             = errors.New("conflict")
)

// Error carries a kind and a message that is safe to show to the caller.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or nil when err carries none.
func KindOf(err error) error {
	for _, k := range []error{
		ErrInvalidInput,
		ErrNotFound,
		ErrInsufficientCapacity,
		ErrNotEligible,
		ErrAlreadyReviewed,
		ErrInvalidStatus,
		ErrConflict,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
