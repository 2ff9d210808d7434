package workflow

import "context"

// StateMachine represents a state machine that tracks current state and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is defined for the current state (guards not evaluated)
	CanFire(trigger Trigger) bool

	// Resolve evaluates the trigger's guards and returns the target state without moving
	Resolve(ctx context.Context, trigger Trigger) (State, error)

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers defined for the current state
	PermittedTriggers() []Trigger
}
