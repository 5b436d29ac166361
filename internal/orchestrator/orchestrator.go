// Package orchestrator coordinates a full run: analyze the goal,
// select workers, plan a conflict-safe execution strategy, execute
// with retry and cancellation handling, and aggregate a final answer.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentmux/agentmux/internal/analysis"
	"github.com/agentmux/agentmux/internal/collab"
	"github.com/agentmux/agentmux/internal/conflict"
	"github.com/agentmux/agentmux/internal/invoker"
	"github.com/agentmux/agentmux/internal/worker"
	"github.com/agentmux/agentmux/pkg/models"
)

// Phase is the orchestrator's run state.
type Phase string

const (
	// PhasePlanning covers analysis, selection, and strategy choice.
	PhasePlanning Phase = "planning"
	// PhaseExecuting covers worker execution.
	PhaseExecuting Phase = "executing"
	// PhaseCancelling is entered when a cancellation arrives while
	// executing; running work gets a grace period to finish.
	PhaseCancelling Phase = "cancelling"
	// PhaseAggregating covers merging results into the final answer.
	PhaseAggregating Phase = "aggregating"
	// PhaseDone is terminal.
	PhaseDone Phase = "done"
)

// RunStatus summarizes how the run ended.
type RunStatus string

const (
	// RunCompleted means every worker succeeded.
	RunCompleted RunStatus = "completed"
	// RunPartial means the run finished but some workers failed.
	RunPartial RunStatus = "partial"
	// RunCancelled means the run was cancelled mid-execution.
	RunCancelled RunStatus = "cancelled"
)

const (
	// DefaultMaxConcurrent caps workers running at once.
	DefaultMaxConcurrent = 4
	// DefaultGracePeriod is how long running invocations get to wind
	// down after a cancellation.
	DefaultGracePeriod = 5 * time.Second
)

// Config contains configuration options for the Orchestrator.
type Config struct {
	// Registry resolves worker ids to implementations. Required.
	Registry *worker.Registry
	// Invoker wraps each worker call. If nil, a default-configured
	// invoker is used.
	Invoker *invoker.Invoker
	// MaxConcurrent caps concurrently running workers. Default 4.
	MaxConcurrent int
	// GracePeriod is the wind-down time after cancellation. Default 5s.
	GracePeriod time.Duration
	// Aggregator merges results. If nil, DefaultAggregator is used.
	Aggregator Aggregator
}

// RunResult is the terminal outcome of one orchestration run.
type RunResult struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`
	// Goal is the goal that was orchestrated.
	Goal string `json:"goal"`
	// Status summarizes the outcome.
	Status RunStatus `json:"status"`
	// Strategy is the concurrency plan that was chosen.
	Strategy models.Strategy `json:"strategy"`
	// WorkersUsed lists the selected workers in selection order.
	WorkersUsed []string `json:"workers_used"`
	// Results holds the current result per worker.
	Results []models.WorkerResult `json:"results"`
	// Summary is the aggregated answer.
	Summary string `json:"summary"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// Duration is the total execution time.
	Duration time.Duration `json:"duration"`
}

// Orchestrator runs goals against a worker registry. One orchestrator
// handles one run at a time.
type Orchestrator struct {
	registry   *worker.Registry
	invoker    *invoker.Invoker
	maxWorkers int
	grace      time.Duration
	aggregator Aggregator

	events chan Event

	mu        sync.Mutex
	phase     Phase
	runID     string
	cancelRun context.CancelFunc
	critical  bool
	completed map[string]bool
}

// New creates an Orchestrator from the config, filling defaults.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("orchestrator needs a worker registry")
	}
	if cfg.Invoker == nil {
		cfg.Invoker = invoker.New(invoker.Options{})
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.Aggregator == nil {
		cfg.Aggregator = DefaultAggregator{}
	}
	return &Orchestrator{
		registry:   cfg.Registry,
		invoker:    cfg.Invoker,
		maxWorkers: cfg.MaxConcurrent,
		grace:      cfg.GracePeriod,
		aggregator: cfg.Aggregator,
		events:     make(chan Event, 64),
	}, nil
}

// Events returns the run event stream.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Phase returns the current run phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Cancel requests cooperative cancellation of the current run.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancelRun
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RunOptions forces parts of planning, for callers (like the tool
// boundary) that already know which workers or strategy they want.
type RunOptions struct {
	// Workers lists explicit worker ids, bypassing skill selection.
	Workers []string
	// Strategy forces the concurrency plan; empty uses the planner.
	Strategy models.Strategy
}

// Run orchestrates one goal end to end. Errors are returned only when
// orchestration could not start (no workers selectable); once workers
// execute, the outcome is always a RunResult, partial or cancelled
// included.
func (o *Orchestrator) Run(ctx context.Context, goal string) (*RunResult, error) {
	return o.RunWith(ctx, goal, RunOptions{})
}

// RunWith orchestrates one goal with explicit planning overrides.
func (o *Orchestrator) RunWith(ctx context.Context, goal string, opts RunOptions) (*RunResult, error) {
	started := time.Now()
	runID := uuid.New().String()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.runID = runID
	o.cancelRun = cancel
	o.critical = false
	o.completed = make(map[string]bool)
	o.mu.Unlock()

	// Planning.
	o.setPhase(PhasePlanning)
	a := analysis.Analyze(goal)
	selected, err := o.selectWorkers(a, opts.Workers)
	if err != nil {
		return nil, err
	}
	plan := conflict.Plan(selected, a)
	if opts.Strategy.Valid() && opts.Strategy != plan.Strategy {
		plan = forcedPlan(opts.Strategy, selected, plan)
		log.Printf("[orchestrator] caller forced strategy %s", plan.Strategy)
	}

	ids := make([]string, len(selected))
	for i, s := range selected {
		ids[i] = s.ID
	}
	log.Printf("[orchestrator] run %s: %d workers %v, strategy %s, complexity %.2f",
		runID, len(selected), ids, plan.Strategy, a.Complexity)

	store := collab.NewStore(ids)

	// Executing.
	o.setPhase(PhaseExecuting)
	byID := make(map[string]models.WorkerSpec, len(selected))
	for _, s := range selected {
		byID[s.ID] = s
	}
	for gi, group := range plan.Groups {
		if runCtx.Err() != nil {
			o.setPhase(PhaseCancelling)
			o.recordUnstarted(store, group, "run cancelled before start")
			continue
		}
		if o.criticalFailed() {
			o.recordUnstarted(store, group, "not started: a critical worker failed")
			continue
		}
		specs := make([]models.WorkerSpec, len(group))
		for i, id := range group {
			specs[i] = byID[id]
		}
		log.Printf("[orchestrator] run %s: group %d/%d (%v)", runID, gi+1, len(plan.Groups), group)
		o.executeGroup(runCtx, store, specs, goal, plan.Strategy)
	}

	// Aggregating.
	o.setPhase(PhaseAggregating)
	results := currentResults(store, ids)
	status := runStatus(runCtx, results)
	summary := o.aggregator.Aggregate(goal, results, store)

	o.setPhase(PhaseDone)
	result := &RunResult{
		RunID:       runID,
		Goal:        goal,
		Status:      status,
		Strategy:    plan.Strategy,
		WorkersUsed: ids,
		Results:     results,
		Summary:     summary,
		StartedAt:   started,
		Duration:    time.Since(started),
	}
	o.emit(Event{Type: EventRunDone, RunID: runID, Message: string(status)})
	log.Printf("[orchestrator] run %s done: %s in %s", runID, status, result.Duration.Round(time.Millisecond))

	o.mu.Lock()
	o.cancelRun = nil
	o.mu.Unlock()
	return result, nil
}

// forcedPlan rebuilds the execution plan for a caller-chosen strategy.
// A forced Hybrid keeps the planner's conflict-safe grouping.
func forcedPlan(s models.Strategy, selected []models.WorkerSpec, planned models.ExecutionPlan) models.ExecutionPlan {
	ids := make([]string, len(selected))
	for i, spec := range selected {
		ids[i] = spec.ID
	}
	switch s {
	case models.StrategyParallel:
		return models.ExecutionPlan{Strategy: s, Groups: [][]string{ids}}
	case models.StrategySequential:
		groups := make([][]string, len(ids))
		for i, id := range ids {
			groups[i] = []string{id}
		}
		return models.ExecutionPlan{Strategy: s, Groups: groups}
	default:
		return models.ExecutionPlan{Strategy: models.StrategyHybrid, Groups: planned.Groups}
	}
}

// selectWorkers picks every spec whose skills intersect the detected
// keywords, in registration order; with no match it falls back to the
// configured default worker. Explicit ids bypass skill selection and
// must all resolve.
func (o *Orchestrator) selectWorkers(a analysis.Analysis, explicit []string) ([]models.WorkerSpec, error) {
	if len(explicit) > 0 {
		selected := make([]models.WorkerSpec, 0, len(explicit))
		for _, id := range explicit {
			spec, ok := o.registry.Spec(id)
			if !ok {
				return nil, fmt.Errorf("unknown worker %q", id)
			}
			selected = append(selected, spec)
		}
		return selected, nil
	}

	var selected []models.WorkerSpec
	for _, spec := range o.registry.Specs() {
		for _, kw := range a.Keywords {
			if spec.HasSkill(kw) {
				selected = append(selected, spec)
				break
			}
		}
	}
	if len(selected) > 0 {
		return selected, nil
	}
	if def, ok := o.registry.Default(); ok {
		log.Printf("[orchestrator] no skills match, falling back to default worker %s", def.ID)
		return []models.WorkerSpec{def}, nil
	}
	return nil, fmt.Errorf("no workers match the goal and no default worker is configured")
}

// executeGroup runs one group's workers concurrently, bounded by the
// global cap. Sequential plans arrive as single-worker groups. On
// cancellation the group gets the grace period; whatever has not
// finished by then is recorded as Cancelled with its last-reported
// partial artifacts.
func (o *Orchestrator) executeGroup(runCtx context.Context, store *collab.Store, specs []models.WorkerSpec, goal string, strategy models.Strategy) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, o.maxWorkers)
	for _, spec := range specs {
		if o.criticalFailed() {
			o.recordUnstarted(store, []string{spec.ID}, "not started: a critical worker failed")
			continue
		}
		wg.Add(1)
		go func(spec models.WorkerSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			o.runWorker(runCtx, store, spec, goal, strategy)
		}(spec)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-runCtx.Done():
		o.setPhase(PhaseCancelling)
		log.Printf("[orchestrator] cancellation received, granting %s grace period", o.grace)
		select {
		case <-done:
			return
		case <-time.After(o.grace):
		}
	}

	// Grace expired. Anything still running is marked Cancelled with
	// whatever partial output it reported.
	for _, spec := range specs {
		if o.isCompleted(spec.ID) {
			continue
		}
		arts := store.PartialArtifacts(spec.ID)
		now := time.Now()
		store.RecordResult(models.WorkerResult{
			WorkerID:   spec.ID,
			Attempt:    1,
			Status:     models.StatusCancelled,
			Error:      "grace period expired",
			StartedAt:  now,
			FinishedAt: now,
			Artifacts:  arts,
		})
		o.markCompleted(spec.ID)
		o.emit(Event{Type: EventWorkerCancelled, RunID: o.runID, WorkerID: spec.ID,
			Message: fmt.Sprintf("%d partial artifacts preserved", len(arts))})
	}
}

// runWorker executes one worker through the retrying invoker and
// records every attempt in the results ledger.
func (o *Orchestrator) runWorker(runCtx context.Context, store *collab.Store, spec models.WorkerSpec, goal string, strategy models.Strategy) {
	defer o.markCompleted(spec.ID)
	o.emit(Event{Type: EventWorkerStarted, RunID: o.runID, WorkerID: spec.ID})

	impl, ok := o.registry.Lookup(spec.ID)
	if !ok {
		now := time.Now()
		store.RecordResult(models.WorkerResult{
			WorkerID: spec.ID, Attempt: 1, Status: models.StatusFailure,
			Error: "unknown worker id", StartedAt: now, FinishedAt: now,
		})
		o.emit(Event{Type: EventWorkerFailed, RunID: o.runID, WorkerID: spec.ID,
			Error: fmt.Errorf("unknown worker %s", spec.ID)})
		return
	}

	var out worker.Output
	attempt := 0
	started := time.Now()

	call := func(c context.Context) error {
		attempt++
		attemptStart := time.Now()
		var ierr error
		out, ierr = impl.Invoke(c, worker.Request{
			Goal:    goal,
			Context: buildContext(store, spec.ID),
			Scopes:  spec.Scopes,
			ReportPartial: func(arts []string) {
				store.ReportPartial(spec.ID, arts)
			},
		})
		if ierr != nil && invoker.Classify(ierr) != invoker.KindCancelled {
			store.RecordResult(models.WorkerResult{
				WorkerID: spec.ID, Attempt: attempt, Status: models.StatusFailure,
				Error: ierr.Error(), StartedAt: attemptStart, FinishedAt: time.Now(),
			})
		}
		return ierr
	}
	partial := func() []string {
		arts := store.PartialArtifacts(spec.ID)
		if len(arts) == 0 {
			arts = out.Artifacts
		}
		return arts
	}

	err := o.invoker.Invoke(runCtx, spec.ID, call, partial)
	finished := time.Now()

	switch {
	case err == nil:
		store.RecordResult(models.WorkerResult{
			WorkerID: spec.ID, Attempt: attempt, Status: models.StatusSuccess,
			Output: out.Text, StartedAt: started, FinishedAt: finished,
			Artifacts: out.Artifacts,
		})
		if strategy == models.StrategySequential || strategy == models.StrategyHybrid {
			store.SetContext("output:"+spec.ID, out.Text)
			store.SetContext("prior_output", out.Text)
		}
		o.emit(Event{Type: EventWorkerCompleted, RunID: o.runID, WorkerID: spec.ID})

	case invoker.Classify(err) == invoker.KindCancelled:
		arts := invoker.PartialArtifacts(err)
		if attempt == 0 {
			attempt = 1
		}
		store.RecordResult(models.WorkerResult{
			WorkerID: spec.ID, Attempt: attempt, Status: models.StatusCancelled,
			Error: err.Error(), StartedAt: started, FinishedAt: finished,
			Artifacts: arts,
		})
		o.emit(Event{Type: EventWorkerCancelled, RunID: o.runID, WorkerID: spec.ID, Error: err})

	default:
		if attempt == 0 {
			attempt = 1
			store.RecordResult(models.WorkerResult{
				WorkerID: spec.ID, Attempt: attempt, Status: models.StatusFailure,
				Error: err.Error(), StartedAt: started, FinishedAt: finished,
			})
		}
		if spec.Critical {
			o.setCriticalFailed()
			log.Printf("[orchestrator] critical worker %s failed, remaining work will not start", spec.ID)
		}
		o.emit(Event{Type: EventWorkerFailed, RunID: o.runID, WorkerID: spec.ID, Error: err})
	}
}

// buildContext assembles a worker's view of the run: the shared
// context snapshot plus its drained mailbox.
func buildContext(store *collab.Store, workerID string) map[string]any {
	ctx := store.ContextSnapshot()
	if msgs := store.Receive(workerID); len(msgs) > 0 {
		ctx["messages"] = msgs
	}
	return ctx
}

// recordUnstarted records a Cancelled or Failure outcome for workers
// that never launched, so the final result enumerates everyone.
func (o *Orchestrator) recordUnstarted(store *collab.Store, ids []string, reason string) {
	status := models.StatusCancelled
	if o.criticalFailed() {
		status = models.StatusFailure
	}
	now := time.Now()
	for _, id := range ids {
		if o.isCompleted(id) {
			continue
		}
		store.RecordResult(models.WorkerResult{
			WorkerID: id, Attempt: 1, Status: status,
			Error: reason, StartedAt: now, FinishedAt: now,
		})
		o.markCompleted(id)
	}
}

// currentResults orders the latest per-worker results by selection
// order.
func currentResults(store *collab.Store, ids []string) []models.WorkerResult {
	byID := make(map[string]models.WorkerResult)
	for _, r := range store.Results() {
		byID[r.WorkerID] = r
	}
	out := make([]models.WorkerResult, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// runStatus derives the run outcome from the context and results.
func runStatus(runCtx context.Context, results []models.WorkerResult) RunStatus {
	if runCtx.Err() != nil {
		return RunCancelled
	}
	for _, r := range results {
		if r.Status == models.StatusCancelled {
			return RunCancelled
		}
	}
	for _, r := range results {
		if r.Status != models.StatusSuccess {
			return RunPartial
		}
	}
	return RunCompleted
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	if o.phase == p {
		o.mu.Unlock()
		return
	}
	o.phase = p
	runID := o.runID
	o.mu.Unlock()
	o.emit(Event{Type: EventPhaseChanged, RunID: runID, Phase: p})
}

func (o *Orchestrator) criticalFailed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.critical
}

func (o *Orchestrator) setCriticalFailed() {
	o.mu.Lock()
	o.critical = true
	o.mu.Unlock()
}

func (o *Orchestrator) isCompleted(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.completed[id]
}

func (o *Orchestrator) markCompleted(id string) {
	o.mu.Lock()
	o.completed[id] = true
	o.mu.Unlock()
}

// emit sends an event without blocking the run.
func (o *Orchestrator) emit(ev Event) {
	ev.Timestamp = time.Now()
	select {
	case o.events <- ev:
	default:
	}
}
