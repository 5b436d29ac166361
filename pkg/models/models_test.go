package models

import (
	"testing"
	"time"
)

func TestWorkerSpecValid(t *testing.T) {
	tests := []struct {
		name string
		spec WorkerSpec
		want bool
	}{
		{"complete", WorkerSpec{ID: "reviewer", Skills: []string{"review"}}, true},
		{"missing id", WorkerSpec{Skills: []string{"review"}}, false},
		{"no skills", WorkerSpec{ID: "reviewer"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorkerSpecSharesScope(t *testing.T) {
	a := WorkerSpec{ID: "a", Scopes: []string{"moduleA", "moduleB"}}
	b := WorkerSpec{ID: "b", Scopes: []string{"moduleB"}}
	c := WorkerSpec{ID: "c", Scopes: []string{"moduleC"}}

	if !a.SharesScope(b) {
		t.Error("a and b share moduleB, expected SharesScope true")
	}
	if a.SharesScope(c) {
		t.Error("a and c have disjoint scopes, expected SharesScope false")
	}
	if c.SharesScope(WorkerSpec{ID: "d"}) {
		t.Error("empty scopes should never conflict")
	}
}

func TestNewMessageClampsPriority(t *testing.T) {
	low := NewMessage("a", "b", "x", -5)
	if low.Priority != 0 {
		t.Errorf("negative priority clamped to %d, want 0", low.Priority)
	}
	high := NewMessage("a", "b", "x", 999)
	if high.Priority != 255 {
		t.Errorf("oversized priority clamped to %d, want 255", high.Priority)
	}
	if low.ID == "" || low.ID == high.ID {
		t.Error("messages must get unique non-empty ids")
	}
}

func TestWorkerResultDuration(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := WorkerResult{StartedAt: start, FinishedAt: start.Add(3 * time.Second)}
	if got := r.Duration(); got != 3*time.Second {
		t.Errorf("Duration() = %v, want 3s", got)
	}
	if got := (WorkerResult{StartedAt: start}).Duration(); got != 0 {
		t.Errorf("unfinished result Duration() = %v, want 0", got)
	}
}

func TestWorkerStatusTerminal(t *testing.T) {
	if StatusRunning.Terminal() {
		t.Error("running must not be terminal")
	}
	for _, s := range []WorkerStatus{StatusSuccess, StatusFailure, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if WorkerStatus("bogus").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestExecutionPlanWorkerIDs(t *testing.T) {
	p := ExecutionPlan{
		Strategy: StrategyHybrid,
		Groups:   [][]string{{"a", "b"}, {"c"}},
	}
	ids := p.WorkerIDs()
	want := []string{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("WorkerIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("WorkerIDs()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
	if !p.Contains("c") || p.Contains("d") {
		t.Error("Contains mismatch")
	}
}
