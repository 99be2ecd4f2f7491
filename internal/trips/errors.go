package trips

import "errors"

var (
	// ErrValidation covers malformed input to Create and Complete.
	ErrValidation = errors.New("invalid input")

	// ErrIllegalTransition protects the state machine: the trip exists but
	// is not in a state the requested transition may leave from. A losing
	// concurrent accept surfaces as this, never as partial state.
	ErrIllegalTransition = errors.New("illegal trip transition")

	// ErrUnauthorized means the actor lacks the role, verification, or
	// ownership the transition requires.
	ErrUnauthorized = errors.New("actor not authorized")

	// ErrNotFound means the trip or actor id does not exist in the store.
	ErrNotFound = errors.New("not found")
)
