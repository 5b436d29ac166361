package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/agentmux/agentmux/internal/orchestrator"
	"github.com/agentmux/agentmux/internal/worker"
	"github.com/agentmux/agentmux/pkg/models"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	reg := worker.NewRegistry()
	reg.Register(models.WorkerSpec{ID: "code-reviewer", Skills: []string{"review"}, Scopes: []string{"moduleA"}},
		worker.Func(func(_ context.Context, _ worker.Request) (worker.Output, error) {
			return worker.Output{Text: "reviewed"}, nil
		}))
	reg.Register(models.WorkerSpec{ID: "test-gen", Skills: []string{"testing"}, Scopes: []string{"moduleB"}},
		worker.Func(func(_ context.Context, _ worker.Request) (worker.Output, error) {
			return worker.Output{Text: "tested"}, nil
		}))

	orch, err := orchestrator.New(orchestrator.Config{Registry: reg, GracePeriod: 200 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	return NewHandler(orch)
}

func TestHandleRunsGoal(t *testing.T) {
	h := newHandler(t)
	resp := h.Handle(context.Background(), Request{Goal: "review the code"})
	if resp.Status != "completed" {
		t.Fatalf("status = %s (%s), want completed", resp.Status, resp.Error)
	}
	if len(resp.Results) != 1 || resp.Results[0].WorkerID != "code-reviewer" {
		t.Errorf("results = %v", resp.Results)
	}
	if resp.ExecutionTime < 0 {
		t.Errorf("ExecutionTime = %v", resp.ExecutionTime)
	}
}

func TestHandleMissingGoal(t *testing.T) {
	h := newHandler(t)
	resp := h.Handle(context.Background(), Request{})
	if resp.Status != "error" || !strings.Contains(resp.Error, "goal") {
		t.Errorf("response = %+v, want a malformed-request error", resp)
	}
}

func TestHandleUnknownAgent(t *testing.T) {
	h := newHandler(t)
	resp := h.Handle(context.Background(), Request{Goal: "review it", Agents: []string{"ghost"}})
	if resp.Status != "error" || !strings.Contains(resp.Error, "ghost") {
		t.Errorf("response = %+v, want an unknown-worker error", resp)
	}
}

func TestHandleForcedAgentsAndStrategy(t *testing.T) {
	h := newHandler(t)
	resp := h.Handle(context.Background(), Request{
		Goal:     "do both things",
		Agents:   []string{"code-reviewer", "test-gen"},
		Strategy: "sequential",
	})
	if resp.Status != "completed" {
		t.Fatalf("status = %s (%s)", resp.Status, resp.Error)
	}
	if len(resp.Results) != 2 {
		t.Errorf("results = %v, want both forced workers", resp.Results)
	}
}

func TestHandleRejectsBadStrategy(t *testing.T) {
	h := newHandler(t)
	resp := h.Handle(context.Background(), Request{Goal: "x", Strategy: "sideways"})
	if resp.Status != "error" {
		t.Errorf("response = %+v, want strategy validation error", resp)
	}
}

func TestServeLineProtocol(t *testing.T) {
	h := newHandler(t)
	in := strings.Join([]string{
		`{"goal": "review the code"}`,
		`not json`,
		`{"goal": ""}`,
	}, "\n")
	var out strings.Builder

	if err := h.Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	var responses []Response
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var r Response
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad response line %q: %v", sc.Text(), err)
		}
		responses = append(responses, r)
	}

	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	if responses[0].Status != "completed" {
		t.Errorf("first response = %+v", responses[0])
	}
	if responses[1].Status != "error" || responses[2].Status != "error" {
		t.Errorf("malformed lines should yield error responses: %+v, %+v", responses[1], responses[2])
	}
}
