package lifecycle

import "time"

// State represents the lifecycle state of a graph run.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// WorkerTracker reports whether every registered worker has finished.
type WorkerTracker interface {
	WorkersDone() bool
}

// Manager manages the lifecycle state machine of a run.
type Manager interface {
	WorkerTracker

	// State returns the current lifecycle state.
	State() State

	// CanStart returns true if a run can be started.
	CanStart() bool

	// CanStop returns true if a run can be stopped.
	CanStop() bool

	// TransitionTo attempts to transition to a new state.
	// Returns an error if the transition is not valid.
	TransitionTo(newState State, reason string) error

	// WaitWithTimeout waits for all workers to finish with a timeout.
	// Returns ErrShutdownTimeout if the timeout expires.
	WaitWithTimeout(timeout time.Duration) error

	// AddWorker increments the worker count.
	AddWorker()

	// WorkerDone decrements the worker count.
	WorkerDone()

	// ActiveWorkers returns the number of workers still running.
	ActiveWorkers() int
}
