package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an event is not defined for the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when the event is defined but every guard evaluated false
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrConcurrentModification is returned when the persisted claim changed between read and commit
	ErrConcurrentModification = errors.New("claim modified concurrently")

	// ErrValidationFailed is returned when the claim validator rejects the claim during a transition
	ErrValidationFailed = errors.New("claim validation failed")
)

// TransitionError describes a failed transition request with enough detail
// to render a message for the user.
type TransitionError struct {
	Event Trigger
	State State
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s claim in state %s: %v", e.Event, e.State, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
