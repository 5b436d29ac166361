// Package invoker wraps a single worker invocation with a timeout,
// error classification, and exponential-backoff retry. Fatal errors
// short-circuit; cancellation is a distinct outcome that carries any
// partial artifacts the invocation produced.
package invoker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds one attempt.
	DefaultTimeout = 300 * time.Second
	// DefaultMaxAttempts is the total attempt budget per invocation.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay seeds the exponential backoff.
	DefaultBaseDelay = time.Second
)

// Options configures an Invoker. Zero fields take defaults.
type Options struct {
	// Timeout bounds each attempt. Default 300s.
	Timeout time.Duration
	// MaxAttempts is the total attempt budget. Default 3.
	MaxAttempts int
	// BaseDelay seeds the backoff: delay = BaseDelay * 2^(attempt-1).
	// Default 1s.
	BaseDelay time.Duration
	// Sleep waits between attempts; tests inject a recording fake.
	// The default honors context cancellation.
	Sleep func(context.Context, time.Duration) error
}

// Invoker executes calls with timeout and retry.
type Invoker struct {
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(context.Context, time.Duration) error
}

// New builds an Invoker, filling unset options with defaults.
func New(opts Options) *Invoker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Invoker{
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		sleep:       opts.Sleep,
	}
}

// Invoke runs call under the configured timeout, retrying transient
// failures with exponential backoff. label names the invocation in
// logs; partial, when non-nil, supplies the artifacts to attach if the
// invocation is cancelled. Success on any attempt returns nil. A fatal
// error returns immediately. Exhausting every attempt returns an
// ExhaustedError wrapping the last cause.
func (inv *Invoker) Invoke(ctx context.Context, label string, call func(context.Context) error, partial func() []string) error {
	cid := uuid.New().String()[:8]

	var lastErr error
	for attempt := 1; attempt <= inv.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return inv.cancelled(cid, label, attempt, ctx.Err(), partial)
		}

		log.Printf("[invoker] %s cid=%s attempt %d/%d", label, cid, attempt, inv.maxAttempts)
		attemptCtx, cancel := context.WithTimeout(ctx, inv.timeout)
		err := call(attemptCtx)
		cancel()

		if err == nil {
			log.Printf("[invoker] %s cid=%s attempt %d succeeded", label, cid, attempt)
			return nil
		}
		lastErr = err

		// The parent context going away mid-attempt is cancellation,
		// not a transient failure, even if the call dressed it up.
		if ctx.Err() != nil {
			return inv.cancelled(cid, label, attempt, err, partial)
		}

		switch kind := Classify(err); kind {
		case KindFatal:
			log.Printf("[invoker] %s cid=%s attempt %d fatal, not retrying: %v", label, cid, attempt, err)
			return fmt.Errorf("invoke %s: %w", label, err)
		case KindCancelled:
			return inv.cancelled(cid, label, attempt, err, partial)
		}

		if attempt == inv.maxAttempts {
			break
		}
		delay := inv.baseDelay * (1 << (attempt - 1))
		log.Printf("[invoker] %s cid=%s attempt %d failed (%v), retrying in %s", label, cid, attempt, err, delay)
		if serr := inv.sleep(ctx, delay); serr != nil {
			return inv.cancelled(cid, label, attempt, serr, partial)
		}
	}

	log.Printf("[invoker] %s cid=%s exhausted %d attempts: %v", label, cid, inv.maxAttempts, lastErr)
	return &ExhaustedError{Attempts: inv.maxAttempts, Err: lastErr}
}

// cancelled builds the cancelled outcome, folding in partial artifacts
// from the callback and from any CancelledError already in the chain.
func (inv *Invoker) cancelled(cid, label string, attempt int, cause error, partial func() []string) error {
	artifacts := PartialArtifacts(cause)
	if len(artifacts) == 0 && partial != nil {
		artifacts = partial()
	}
	log.Printf("[invoker] %s cid=%s cancelled on attempt %d, %d partial artifacts preserved",
		label, cid, attempt, len(artifacts))
	return &CancelledError{Artifacts: artifacts, Err: cause}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
