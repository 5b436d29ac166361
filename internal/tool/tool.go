// Package tool exposes the orchestrator as a callable tool over a
// JSON request/response protocol, modeled after the Model Context
// Protocol's tool-call framing. Serve handles newline-delimited JSON
// on a reader/writer pair, one request per line.
package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/agentmux/agentmux/internal/orchestrator"
	"github.com/agentmux/agentmux/pkg/models"
)

// Request is one tool invocation.
type Request struct {
	// Goal is the goal to orchestrate. Required.
	Goal string `json:"goal"`
	// Agents optionally forces the worker set by id.
	Agents []string `json:"agents,omitempty"`
	// Strategy optionally forces the execution strategy.
	Strategy string `json:"strategy,omitempty"`
	// Timeout bounds the whole run, in seconds. Zero means no bound.
	Timeout int `json:"timeout,omitempty"`
}

// Response is the tool's answer.
type Response struct {
	// Status is the run outcome, or "error" when orchestration could
	// not start.
	Status string `json:"status"`
	// Results holds per-worker outcomes for runs that executed.
	Results []models.WorkerResult `json:"results,omitempty"`
	// Summary is the aggregated answer.
	Summary string `json:"summary,omitempty"`
	// ExecutionTime is the run duration in seconds.
	ExecutionTime float64 `json:"execution_time"`
	// Error describes the failure when Status is "error".
	Error string `json:"error,omitempty"`
}

// Handler serves tool requests against one orchestrator.
type Handler struct {
	orch *orchestrator.Orchestrator
}

// NewHandler wraps an orchestrator.
func NewHandler(orch *orchestrator.Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// Handle runs one request. Malformed requests and pre-execution
// failures come back as error responses, never as partial results.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	if req.Goal == "" {
		return Response{Status: "error", Error: "malformed request: goal is required"}
	}
	if req.Strategy != "" && !models.Strategy(req.Strategy).Valid() {
		return Response{Status: "error", Error: fmt.Sprintf("malformed request: unknown strategy %q", req.Strategy)}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Timeout)*time.Second)
		defer cancel()
	}

	res, err := h.orch.RunWith(ctx, req.Goal, orchestrator.RunOptions{
		Workers:  req.Agents,
		Strategy: models.Strategy(req.Strategy),
	})
	if err != nil {
		return Response{Status: "error", Error: err.Error()}
	}
	return Response{
		Status:        string(res.Status),
		Results:       res.Results,
		Summary:       res.Summary,
		ExecutionTime: res.Duration.Seconds(),
	}
}

// Serve reads newline-delimited JSON requests from r and writes one
// JSON response per line to w, until r is exhausted or ctx ends.
func (h *Handler) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		var resp Response
		if err := json.Unmarshal(line, &req); err != nil {
			resp = Response{Status: "error", Error: fmt.Sprintf("malformed request: %v", err)}
		} else {
			log.Printf("[tool] request: %q", req.Goal)
			resp = h.Handle(ctx, req)
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
}
