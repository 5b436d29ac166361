package models

import "time"

// WorkerStatus represents the outcome of a worker invocation.
type WorkerStatus string

const (
	// StatusRunning indicates the invocation is still in flight.
	StatusRunning WorkerStatus = "running"
	// StatusSuccess indicates the invocation completed successfully.
	StatusSuccess WorkerStatus = "success"
	// StatusFailure indicates the invocation failed.
	StatusFailure WorkerStatus = "failure"
	// StatusCancelled indicates the invocation was cancelled before completion.
	StatusCancelled WorkerStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s WorkerStatus) Valid() bool {
	switch s {
	case StatusRunning, StatusSuccess, StatusFailure, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status will not change again for this attempt.
func (s WorkerStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure || s == StatusCancelled
}

// WorkerResult records the outcome of one worker invocation attempt.
// Retries produce a new attempt record rather than mutating the old one;
// the results ledger keeps every attempt for audit and exposes the latest
// as the current result.
type WorkerResult struct {
	// WorkerID is the worker this result belongs to.
	WorkerID string `json:"worker_id"`
	// Attempt is the 1-indexed attempt number within the run.
	Attempt int `json:"attempt"`
	// Status is the outcome of this attempt.
	Status WorkerStatus `json:"status"`
	// Output is the worker's final output, if any.
	Output string `json:"output,omitempty"`
	// Error holds the failure message when Status is failure or cancelled.
	Error string `json:"error,omitempty"`
	// StartedAt is when the invocation began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the invocation reached a terminal status.
	FinishedAt time.Time `json:"finished_at"`
	// Artifacts lists outputs produced by the worker, in production order.
	// For cancelled invocations this holds whatever partial output existed
	// when the cancellation took effect.
	Artifacts []string `json:"artifacts,omitempty"`
}

// Duration returns how long the attempt ran.
func (r WorkerResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
