package evv

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a visit, client or authorization does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller is not the caregiver assigned to the visit.
	ErrForbidden = errors.New("caller not assigned to visit")

	// ErrConflict is returned for clock operations against a visit in the wrong state,
	// including the loser of two concurrent clock-ins.
	ErrConflict = errors.New("visit state conflict")

	// ErrValidation is returned for malformed input before any state change.
	ErrValidation = errors.New("validation error")

	// ErrQuotaExceeded is returned when requested units exceed the window's remaining quota.
	ErrQuotaExceeded = errors.New("authorization quota exceeded")

	// ErrDuplicateMutation is returned when a device replays a mutation whose
	// idempotency token has already been accepted. The original outcome stands.
	ErrDuplicateMutation = errors.New("mutation already applied")
)

// ValidationError reports which field failed and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// QuotaExceededError carries both sides of a failed quota admission so billing
// review can act on it.
type QuotaExceededError struct {
	AuthorizationID int32
	Available       int
	Requested       int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("authorization %d: requested %d units, %d available",
		e.AuthorizationID, e.Requested, e.Available)
}

func (e *QuotaExceededError) Unwrap() error {
	return ErrQuotaExceeded
}
