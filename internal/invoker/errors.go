package invoker

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an invocation error.
type Kind int

const (
	// KindRetryable marks transient failures: timeouts, connection
	// failures, explicit temporary/unavailable signals.
	KindRetryable Kind = iota
	// KindFatal marks failures that retrying cannot fix: validation
	// errors, malformed input, permission denial.
	KindFatal
	// KindCancelled marks cooperative cancellation. Not a generic
	// error: the cancelled outcome carries partial artifacts.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindRetryable:
		return "retryable"
	case KindFatal:
		return "fatal"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// FatalError wraps a failure that must not be retried.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %v", e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// RetryableError wraps a transient failure that may be retried.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return fmt.Sprintf("retryable: %v", e.Err) }
func (e *RetryableError) Unwrap() error { return e.Err }

// CancelledError reports a cancelled invocation. Artifacts holds
// whatever partial output existed when the cancellation took effect;
// conversions between error layers must carry it forward, never
// rebuild a bare cancellation.
type CancelledError struct {
	Artifacts []string
	Err       error
}

func (e *CancelledError) Error() string {
	if e.Err == nil {
		return "cancelled"
	}
	return fmt.Sprintf("cancelled: %v", e.Err)
}
func (e *CancelledError) Unwrap() error { return e.Err }

// ExhaustedError reports that every retry attempt failed. It wraps
// the last underlying cause.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("exhausted %d attempts: %v", e.Attempts, e.Err)
}
func (e *ExhaustedError) Unwrap() error { return e.Err }

// PartialArtifacts extracts the artifact list from a cancellation
// anywhere in the error chain, or nil.
func PartialArtifacts(err error) []string {
	var c *CancelledError
	if errors.As(err, &c) {
		return c.Artifacts
	}
	return nil
}

// fatalMarkers and retryableMarkers classify errors that arrive as
// plain text from opaque workers or backends.
var (
	fatalMarkers     = []string{"validation", "malformed", "permission", "unknown worker", "parse"}
	retryableMarkers = []string{"timeout", "timed out", "connection", "temporary", "unavailable", "reset"}
)

// Classify determines how an invocation error should be handled.
// Typed errors win; context errors map to cancelled (Canceled) and
// retryable (DeadlineExceeded); otherwise the message is matched
// against known fatal and transient markers. Unrecognized errors are
// treated as retryable so a flaky worker gets its attempts.
func Classify(err error) Kind {
	var (
		fe *FatalError
		re *RetryableError
		ce *CancelledError
	)
	switch {
	case errors.As(err, &ce):
		return KindCancelled
	case errors.As(err, &fe):
		return KindFatal
	case errors.As(err, &re):
		return KindRetryable
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindRetryable
	}
	msg := strings.ToLower(err.Error())
	for _, m := range fatalMarkers {
		if strings.Contains(msg, m) {
			return KindFatal
		}
	}
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return KindRetryable
		}
	}
	return KindRetryable
}
