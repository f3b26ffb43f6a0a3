package state

import "fmt"

// State represents the workload's lifecycle state
type State string

const (
	StateIdle     State = "idle"     // No workload started yet
	StateStarting State = "starting" // Adapter start in progress
	StateRunning  State = "running"  // Workload active
	StateStopping State = "stopping" // Adapter stop in progress
	StateStopped  State = "stopped"  // Workload stopped
	StateFailed   State = "failed"   // Adapter start failed
)

// validTransitions maps from-state to allowed to-states
var validTransitions = map[State]map[State]bool{
	StateIdle: {
		StateStarting: true, // Idle → Starting (first start request)
	},
	StateStarting: {
		StateRunning: true, // Starting → Running (adapter start succeeded)
		StateFailed:  true, // Starting → Failed (adapter start raised)
	},
	StateRunning: {
		StateStopping: true, // Running → Stopping (stop or implicit restart)
	},
	StateStopping: {
		StateStopped: true, // Stopping → Stopped (always, even on adapter error)
	},
	StateStopped: {
		StateStarting: true, // Stopped → Starting (restart)
	},
	StateFailed: {
		StateStarting: true, // Failed → Starting (retry after failure)
		StateStopping: true, // Failed → Stopping (stop clears a failed workload)
	},
}

// ValidateTransition checks if a state transition is valid
func ValidateTransition(from, to State) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsStable returns true if the state is not a transient transition state.
// Every controller call must return with the machine in a stable state.
func (s State) IsStable() bool {
	return s != StateStarting && s != StateStopping
}

// IsStoppable returns true if a stop request has work to do from this state.
// Idle and Stopped make stop a no-op.
func (s State) IsStoppable() bool {
	return s == StateRunning || s == StateStarting || s == StateFailed
}

// All returns every known state, for exposition enumeration
func All() []State {
	return []State{StateIdle, StateStarting, StateRunning, StateStopping, StateStopped, StateFailed}
}
