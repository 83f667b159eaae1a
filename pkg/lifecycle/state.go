package lifecycle

import "fmt"

// State is a lifecycle controller state.
type State string

const (
	// StateUninitialized is the state before Start runs.
	StateUninitialized State = "uninitialized"
	// StateInitializing covers bridge initialization and in-flight
	// status checks.
	StateInitializing State = "initializing"
	// StateActive means a subscription is active and premium content is
	// shown.
	StateActive State = "active"
	// StateNotSubscribed means the catalog is shown.
	StateNotSubscribed State = "not_subscribed"
	// StateError is entered momentarily on bridge failures before
	// falling back to StateNotSubscribed behavior.
	StateError State = "error"
)

// transitions is the allowed-transition table. Re-entering the current
// state is always permitted and treated as a no-op by the controller.
var transitions = map[State][]State{
	StateUninitialized: {StateInitializing, StateActive, StateNotSubscribed, StateError},
	StateInitializing:  {StateActive, StateNotSubscribed, StateError},
	// The bridge remains the source of truth, so every settled state can
	// re-enter a status check.
	StateActive:        {StateInitializing, StateNotSubscribed, StateError},
	StateNotSubscribed: {StateInitializing, StateActive, StateError},
	StateError:         {StateInitializing, StateActive, StateNotSubscribed},
}

// CanTransition reports whether moving from one state to another is
// within the transition table.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Validate returns ErrInvalidTransition, annotated with both states,
// when the move is outside the transition table.
func Validate(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
