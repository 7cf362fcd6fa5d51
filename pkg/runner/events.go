package runner

import (
	"time"

	"github.com/bft-labs/framegraph/pkg/lifecycle"
)

// EventHandler receives notifications about a run.
type EventHandler interface {
	// OnStateChange is called after every lifecycle transition.
	OnStateChange(event StateChangeEvent)

	// OnWorkerDone is called when a root, MultiSource or PipelineSource
	// goroutine returns.
	OnWorkerDone(event WorkerDoneEvent)
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	RunID    string
	Previous lifecycle.State
	Current  lifecycle.State
	Reason   string
}

// WorkerDoneEvent describes a finished worker.
type WorkerDoneEvent struct {
	RunID    string
	Worker   string
	Duration time.Duration
	Err      error
}

// BaseEventHandler provides no-op implementations for embedding.
type BaseEventHandler struct{}

// OnStateChange does nothing.
func (BaseEventHandler) OnStateChange(StateChangeEvent) {}

// OnWorkerDone does nothing.
func (BaseEventHandler) OnWorkerDone(WorkerDoneEvent) {}
