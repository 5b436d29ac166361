package worker

import (
	"context"
	"testing"

	"github.com/agentmux/agentmux/pkg/models"
)

func echoWorker(id string) Worker {
	return Func(func(_ context.Context, req Request) (Output, error) {
		return Output{Text: id + ": " + req.Goal}, nil
	})
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	spec := models.WorkerSpec{ID: "reviewer", Skills: []string{"review"}}
	if err := r.Register(spec, echoWorker("reviewer")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	w, ok := r.Lookup("reviewer")
	if !ok {
		t.Fatal("Lookup failed for registered worker")
	}
	out, err := w.Invoke(context.Background(), Request{Goal: "check it"})
	if err != nil || out.Text != "reviewer: check it" {
		t.Errorf("Invoke = %q, %v", out.Text, err)
	}
	if _, ok := r.Lookup("ghost"); ok {
		t.Error("Lookup should fail for unknown worker")
	}
}

func TestRegistryRejectsInvalidSpec(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(models.WorkerSpec{ID: "noskills"}, echoWorker("x")); err == nil {
		t.Error("spec without skills should be rejected")
	}
	if err := r.Register(models.WorkerSpec{ID: "ok", Skills: []string{"a"}}, nil); err == nil {
		t.Error("nil implementation should be rejected")
	}
}

func TestRegistryReplaceKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(models.WorkerSpec{ID: "a", Skills: []string{"x"}}, echoWorker("a"))
	r.Register(models.WorkerSpec{ID: "b", Skills: []string{"y"}}, echoWorker("b"))
	r.Register(models.WorkerSpec{ID: "a", Skills: []string{"x", "z"}}, echoWorker("a2"))

	specs := r.Specs()
	if len(specs) != 2 || specs[0].ID != "a" || specs[1].ID != "b" {
		t.Fatalf("Specs = %v, want a then b with no duplicate", specs)
	}
	if len(specs[0].Skills) != 2 {
		t.Errorf("re-registration should replace the spec, got %v", specs[0].Skills)
	}
}

func TestRegistryDefault(t *testing.T) {
	r := NewRegistry()
	if err := r.SetDefault("nobody"); err == nil {
		t.Error("SetDefault should fail for unknown worker")
	}
	if _, ok := r.Default(); ok {
		t.Error("Default should report unset")
	}

	r.Register(models.WorkerSpec{ID: "generalist", Skills: []string{"general"}}, echoWorker("g"))
	if err := r.SetDefault("generalist"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	spec, ok := r.Default()
	if !ok || spec.ID != "generalist" {
		t.Errorf("Default = %v, %v", spec, ok)
	}
}
