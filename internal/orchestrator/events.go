package orchestrator

import "time"

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventPhaseChanged indicates the run moved to a new phase.
	EventPhaseChanged EventType = "phase_changed"
	// EventWorkerStarted indicates a worker invocation began.
	EventWorkerStarted EventType = "worker_started"
	// EventWorkerCompleted indicates a worker finished successfully.
	EventWorkerCompleted EventType = "worker_completed"
	// EventWorkerFailed indicates a worker failed for good.
	EventWorkerFailed EventType = "worker_failed"
	// EventWorkerCancelled indicates a worker was cancelled.
	EventWorkerCancelled EventType = "worker_cancelled"
	// EventRunDone indicates the run reached its terminal state.
	EventRunDone EventType = "run_done"
)

// Event is emitted as a run progresses. Subscribers read through
// Events; a slow subscriber drops events rather than stalling the run.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID identifies the run.
	RunID string
	// WorkerID is the related worker, if applicable.
	WorkerID string
	// Phase is the run phase for phase-change events.
	Phase Phase
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
