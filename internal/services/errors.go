package services

import "errors"

// Sentinel errors shared across services. Handlers map these to HTTP
// status codes in one place.
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState indicates the operation is not allowed in the
	// record's current lifecycle state
	ErrInvalidState = errors.New("invalid state for this operation")

	// ErrDuplicate indicates a uniqueness constraint was violated
	ErrDuplicate = errors.New("duplicate record")

	// ErrInsufficientDeposit indicates a deduction exceeds the
	// remaining deposit balance
	ErrInsufficientDeposit = errors.New("insufficient deposit balance")

	// ErrUnhandledStatus indicates a webhook carried a status the
	// reconciler does not recognize
	ErrUnhandledStatus = errors.New("unhandled gateway status")

	// ErrValidation indicates the request payload failed validation
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a concurrent update won; the caller should
	// retry with fresh data
	ErrConflict = errors.New("concurrent update conflict")
)
