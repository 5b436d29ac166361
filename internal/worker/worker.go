// Package worker defines the contract the orchestration engine
// requires from worker implementations, plus the registry that maps
// worker ids to implementations. The registry is an explicit object
// constructed at process start and passed into the orchestrator; there
// is no ambient global lookup.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentmux/agentmux/pkg/models"
)

// Request is the uniform input every worker receives.
type Request struct {
	// Goal is the subtask the worker should perform.
	Goal string
	// Context carries shared findings: prior worker outputs, shared
	// context entries, drained mailbox messages.
	Context map[string]any
	// Scopes lists the resource scopes the worker is allowed to touch.
	Scopes []string
	// ReportPartial, when non-nil, lets the worker report the artifacts
	// it has produced so far. The last report becomes the preserved
	// partial output if the invocation is cancelled.
	ReportPartial func(artifacts []string)
}

// Output is a worker's structured result.
type Output struct {
	// Text is the worker's answer.
	Text string
	// Artifacts lists outputs produced along the way, in order.
	Artifacts []string
	// TokensUsed is the model token count, when the worker knows it.
	TokensUsed int64
}

// Worker is an opaque unit that performs one scoped subtask. What a
// worker does internally is its own business; the engine only relies
// on this contract.
type Worker interface {
	// Invoke performs the subtask. Implementations must honor ctx
	// cancellation at their suspension points.
	Invoke(ctx context.Context, req Request) (Output, error)
}

// Func adapts a function to the Worker interface.
type Func func(ctx context.Context, req Request) (Output, error)

// Invoke calls the function.
func (f Func) Invoke(ctx context.Context, req Request) (Output, error) {
	return f(ctx, req)
}

// Registry maps worker ids to specs and implementations. Resolution
// happens once at orchestration start. Safe for concurrent use so a
// definition reload can swap specs while a run reads them.
type Registry struct {
	mu        sync.RWMutex
	specs     map[string]models.WorkerSpec
	impls     map[string]Worker
	order     []string
	defaultID string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]models.WorkerSpec),
		impls: make(map[string]Worker),
	}
}

// Register adds a worker. Registering an existing id replaces the
// spec and implementation but keeps its position.
func (r *Registry) Register(spec models.WorkerSpec, w Worker) error {
	if !spec.Valid() {
		return fmt.Errorf("register worker: spec for %q needs an id and at least one skill", spec.ID)
	}
	if w == nil {
		return fmt.Errorf("register worker %s: nil implementation", spec.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.specs[spec.ID]; !exists {
		r.order = append(r.order, spec.ID)
	}
	r.specs[spec.ID] = spec
	r.impls[spec.ID] = w
	return nil
}

// SetDefault marks the worker selected when no skills match a goal.
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.specs[id]; !ok {
		return fmt.Errorf("set default: unknown worker %q", id)
	}
	r.defaultID = id
	return nil
}

// Default returns the fallback worker's spec, if one is configured.
func (r *Registry) Default() (models.WorkerSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultID == "" {
		return models.WorkerSpec{}, false
	}
	spec, ok := r.specs[r.defaultID]
	return spec, ok
}

// Lookup resolves a worker id to its implementation.
func (r *Registry) Lookup(id string) (Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.impls[id]
	return w, ok
}

// Spec returns the spec registered for the id.
func (r *Registry) Spec(id string) (models.WorkerSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[id]
	return s, ok
}

// Specs returns every registered spec in registration order.
func (r *Registry) Specs() []models.WorkerSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.WorkerSpec, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.specs[id])
	}
	return out
}

// Len returns the number of registered workers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
