package apperror

import "errors"

// Sentinel errors for the engine's failure taxonomy. Services wrap these
// with fmt.Errorf("%w: ...") and handlers map them to HTTP status codes
// with errors.Is.
var (
	// ErrValidation: malformed or out-of-range answer. Recoverable, the
	// session stays active at the same step.
	ErrValidation = errors.New("validation error")

	// ErrState: operation attempted in the wrong session/challenge state.
	// No mutation happens.
	ErrState = errors.New("state error")

	// ErrNotFound: unknown quest, step, challenge or user.
	ErrNotFound = errors.New("not found")

	// ErrConflict: duplicate savings-event candidate or concurrent mutation
	// race. Surfaced for the caller to decide, never auto-resolved.
	ErrConflict = errors.New("conflict")
)
