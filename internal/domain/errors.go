package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.
// Every rejection maps to exactly one of five kinds: not-found,
// unauthorized, invalid-argument, invalid-state, transfer-failure.

var (
	// Not found
	ErrTaskNotFound = errors.New("task not found")

	// Unauthorized
	ErrNotPoster = errors.New("caller is not the task poster")
	ErrNoCaller  = errors.New("caller identity required")

	// Invalid argument
	ErrEmptyTitle       = errors.New("task title must not be empty")
	ErrEmptyDescription = errors.New("task description must not be empty")
	ErrZeroReward       = errors.New("task reward must be positive")
	ErrEmptyFreelancer  = errors.New("freelancer address must not be empty")
	ErrSelfAssign       = errors.New("poster cannot assign the task to themselves")

	// Invalid state
	ErrNotCreated  = errors.New("task is no longer open for assignment")
	ErrNotAssigned = errors.New("task has no assigned freelancer to pay")
	ErrTerminal    = errors.New("task is already paid or cancelled")

	// Transfer failure
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrTransferFailed    = errors.New("value transfer could not be completed")
)

// ─── Kind Classification ────────────────────────────────────────────────────
// The API layer uses these to pick an HTTP status; the ledger itself only
// returns sentinels.

// IsNotFound reports whether err is a missing-task rejection.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}

// IsUnauthorized reports whether err is a caller-mismatch rejection.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrNotPoster) || errors.Is(err, ErrNoCaller)
}

// IsInvalidArgument reports whether err is a bad-input rejection.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrEmptyTitle) || errors.Is(err, ErrEmptyDescription) ||
		errors.Is(err, ErrZeroReward) || errors.Is(err, ErrEmptyFreelancer) ||
		errors.Is(err, ErrSelfAssign)
}

// IsInvalidState reports whether err is a wrong-status rejection.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrNotCreated) || errors.Is(err, ErrNotAssigned) ||
		errors.Is(err, ErrTerminal)
}

// IsTransferFailure reports whether err is a failed value movement.
func IsTransferFailure(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrTransferFailed)
}
