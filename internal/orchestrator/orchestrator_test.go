package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agentmux/agentmux/internal/worker"
	"github.com/agentmux/agentmux/pkg/models"
)

func newOrchestrator(t *testing.T, reg *worker.Registry) *Orchestrator {
	t.Helper()
	o, err := New(Config{Registry: reg, GracePeriod: 500 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	return o
}

// orderRecorder tracks the order workers start in.
type orderRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *orderRecorder) add(id string) {
	r.mu.Lock()
	r.order = append(r.order, id)
	r.mu.Unlock()
}

func (r *orderRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func TestRunOverlappingScopesSequential(t *testing.T) {
	rec := &orderRecorder{}
	reg := worker.NewRegistry()
	reg.Register(models.WorkerSpec{ID: "code-reviewer", Skills: []string{"review"}, Scopes: []string{"moduleA"}},
		worker.Func(func(_ context.Context, req worker.Request) (worker.Output, error) {
			rec.add("code-reviewer")
			return worker.Output{Text: "review: looks solid"}, nil
		}))
	reg.Register(models.WorkerSpec{ID: "test-gen", Skills: []string{"testing"}, Scopes: []string{"moduleA"}},
		worker.Func(func(_ context.Context, req worker.Request) (worker.Output, error) {
			rec.add("test-gen")
			if _, ok := req.Context["prior_output"]; !ok {
				t.Error("sequential second worker should see the prior worker's output in context")
			}
			return worker.Output{Text: "tests: 12 cases generated"}, nil
		}))

	o := newOrchestrator(t, reg)
	res, err := o.Run(context.Background(), "Review this module and generate tests")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Strategy != models.StrategySequential {
		t.Errorf("strategy = %s, want sequential for overlapping scopes", res.Strategy)
	}
	if got := rec.get(); len(got) != 2 || got[0] != "code-reviewer" || got[1] != "test-gen" {
		t.Errorf("execution order = %v, want reviewer then test-gen", got)
	}
	if res.Status != RunCompleted {
		t.Errorf("status = %s, want completed", res.Status)
	}

	// Aggregation lists both outputs in selection order.
	ri := strings.Index(res.Summary, "review: looks solid")
	ti := strings.Index(res.Summary, "tests: 12 cases generated")
	if ri < 0 || ti < 0 || ri > ti {
		t.Errorf("summary should list reviewer output before test output:\n%s", res.Summary)
	}
}

func TestRunDisjointScopesParallel(t *testing.T) {
	delay := 100 * time.Millisecond
	slow := worker.Func(func(ctx context.Context, _ worker.Request) (worker.Output, error) {
		select {
		case <-time.After(delay):
			return worker.Output{Text: "done"}, nil
		case <-ctx.Done():
			return worker.Output{}, ctx.Err()
		}
	})

	reg := worker.NewRegistry()
	reg.Register(models.WorkerSpec{ID: "code-reviewer", Skills: []string{"review"}, Scopes: []string{"moduleA"}}, slow)
	reg.Register(models.WorkerSpec{ID: "test-gen", Skills: []string{"testing"}, Scopes: []string{"moduleB"}}, slow)

	o := newOrchestrator(t, reg)
	res, err := o.Run(context.Background(), "Review this module and generate tests")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Strategy != models.StrategyParallel {
		t.Errorf("strategy = %s, want parallel for disjoint scopes", res.Strategy)
	}
	if res.Status != RunCompleted || len(res.Results) != 2 {
		t.Errorf("status = %s with %d results, want completed with 2", res.Status, len(res.Results))
	}
	// Concurrent execution: total time tracks the slower worker, not
	// the sum of both.
	if res.Duration >= 2*delay {
		t.Errorf("duration %v suggests serial execution of %v workers", res.Duration, delay)
	}
}

func TestRunCancellationPreservesArtifacts(t *testing.T) {
	ready := make(chan struct{})
	reg := worker.NewRegistry()
	reg.Register(models.WorkerSpec{ID: "code-reviewer", Skills: []string{"review"}, Scopes: []string{"moduleA"}},
		worker.Func(func(ctx context.Context, req worker.Request) (worker.Output, error) {
			req.ReportPartial([]string{"partial-review.md"})
			close(ready)
			<-ctx.Done()
			return worker.Output{}, ctx.Err()
		}))

	o := newOrchestrator(t, reg)
	go func() {
		<-ready
		o.Cancel()
	}()

	res, err := o.Run(context.Background(), "review the code")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != RunCancelled {
		t.Fatalf("status = %s, want cancelled", res.Status)
	}
	if len(res.Results) != 1 {
		t.Fatalf("results = %v, want one entry", res.Results)
	}
	r := res.Results[0]
	if r.Status != models.StatusCancelled {
		t.Errorf("worker status = %s, want cancelled", r.Status)
	}
	if len(r.Artifacts) != 1 || r.Artifacts[0] != "partial-review.md" {
		t.Errorf("Artifacts = %v, want the partial output preserved", r.Artifacts)
	}
}

func TestRunDefaultWorkerWhenNoSkillsMatch(t *testing.T) {
	reg := worker.NewRegistry()
	reg.Register(models.WorkerSpec{ID: "generalist", Skills: []string{"general"}},
		worker.Func(func(_ context.Context, _ worker.Request) (worker.Output, error) {
			return worker.Output{Text: "handled"}, nil
		}))
	reg.SetDefault("generalist")

	o := newOrchestrator(t, reg)
	res, err := o.Run(context.Background(), "do the nondescript thing")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.WorkersUsed) != 1 || res.WorkersUsed[0] != "generalist" {
		t.Errorf("WorkersUsed = %v, want the default worker", res.WorkersUsed)
	}
}

func TestRunNoWorkersNoDefaultFailsToStart(t *testing.T) {
	o := newOrchestrator(t, worker.NewRegistry())
	if _, err := o.Run(context.Background(), "anything at all"); err == nil {
		t.Error("orchestration with no selectable workers should fail before executing")
	}
}

func TestRunNonCriticalFailureContinues(t *testing.T) {
	reg := worker.NewRegistry()
	reg.Register(models.WorkerSpec{ID: "code-reviewer", Skills: []string{"review"}, Scopes: []string{"moduleA"}},
		worker.Func(func(_ context.Context, _ worker.Request) (worker.Output, error) {
			return worker.Output{}, errors.New("validation failed: cannot review")
		}))
	reg.Register(models.WorkerSpec{ID: "test-gen", Skills: []string{"testing"}, Scopes: []string{"moduleA"}},
		worker.Func(func(_ context.Context, _ worker.Request) (worker.Output, error) {
			return worker.Output{Text: "tests written"}, nil
		}))

	o := newOrchestrator(t, reg)
	res, err := o.Run(context.Background(), "Review this module and generate tests")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != RunPartial {
		t.Errorf("status = %s, want partial", res.Status)
	}
	if len(res.Results) != 2 {
		t.Fatalf("results = %v, want both workers enumerated", res.Results)
	}
	if res.Results[0].Status != models.StatusFailure {
		t.Errorf("reviewer status = %s, want failure", res.Results[0].Status)
	}
	if res.Results[1].Status != models.StatusSuccess {
		t.Errorf("test-gen status = %s, want success despite the sibling failure", res.Results[1].Status)
	}
}

func TestRunCriticalFailureStopsRemainingGroups(t *testing.T) {
	reg := worker.NewRegistry()
	reg.Register(models.WorkerSpec{ID: "code-reviewer", Skills: []string{"review"}, Scopes: []string{"moduleA"}, Critical: true},
		worker.Func(func(_ context.Context, _ worker.Request) (worker.Output, error) {
			return worker.Output{}, errors.New("permission denied")
		}))
	started := false
	reg.Register(models.WorkerSpec{ID: "test-gen", Skills: []string{"testing"}, Scopes: []string{"moduleA"}},
		worker.Func(func(_ context.Context, _ worker.Request) (worker.Output, error) {
			started = true
			return worker.Output{Text: "tests"}, nil
		}))

	o := newOrchestrator(t, reg)
	res, err := o.Run(context.Background(), "Review this module and generate tests")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if started {
		t.Error("second group must not start after a critical failure")
	}
	if len(res.Results) != 2 {
		t.Fatalf("results = %v, want both workers enumerated", res.Results)
	}
	if res.Results[1].Status != models.StatusFailure || !strings.Contains(res.Results[1].Error, "not started") {
		t.Errorf("skipped worker result = %+v, want a not-started failure", res.Results[1])
	}
}

func TestRunEmitsEvents(t *testing.T) {
	reg := worker.NewRegistry()
	reg.Register(models.WorkerSpec{ID: "code-reviewer", Skills: []string{"review"}},
		worker.Func(func(_ context.Context, _ worker.Request) (worker.Output, error) {
			return worker.Output{Text: "ok"}, nil
		}))

	o := newOrchestrator(t, reg)
	if _, err := o.Run(context.Background(), "review it"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := map[EventType]bool{}
	for {
		select {
		case ev := <-o.Events():
			seen[ev.Type] = true
		default:
			for _, want := range []EventType{EventPhaseChanged, EventWorkerStarted, EventWorkerCompleted, EventRunDone} {
				if !seen[want] {
					t.Errorf("missing event %s", want)
				}
			}
			return
		}
	}
}
