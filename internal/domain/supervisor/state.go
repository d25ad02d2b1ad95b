package supervisor

import "fmt"

// State represents a stage's position in its lifecycle
type State int

const (
	// StatePending means the stage is declared but not launched yet.
	StatePending State = iota
	// StateStarting means the process is running and readiness is pending.
	StateStarting
	// StateReady means the readiness condition was observed.
	StateReady
	// StateRunning means the stage is ready and under supervision.
	StateRunning
	// StateExited means the process ended as part of normal operation.
	StateExited
	// StateFailed means the stage ended the run with a classified failure.
	StateFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateExited || s == StateFailed
}

// validTransitions maps each state to the states reachable from it. Stages
// never restart, so exited and failed have no successors.
var validTransitions = map[State][]State{
	StatePending:  {StateStarting, StateFailed},
	StateStarting: {StateReady, StateExited, StateFailed},
	StateReady:    {StateRunning, StateExited, StateFailed},
	StateRunning:  {StateExited, StateFailed},
	StateExited:   {},
	StateFailed:   {},
}

// canTransition reports whether moving from one state to another is legal.
func canTransition(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition returns a descriptive error for illegal transitions.
func checkTransition(stage string, from, to State) error {
	if !canTransition(from, to) {
		return fmt.Errorf("stage %s cannot move from %s to %s", stage, from, to)
	}
	return nil
}
