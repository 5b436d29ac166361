package collab

import (
	"sync"
	"testing"

	"github.com/agentmux/agentmux/pkg/models"
)

func newTestStore() *Store {
	return NewStore([]string{"reviewer", "tester", "docs"})
}

func TestReceiveIdempotent(t *testing.T) {
	s := newTestStore()
	if err := s.Send("reviewer", "tester", "found an issue", 5); err != nil {
		t.Fatalf("Send: %v", err)
	}

	first := s.Receive("tester")
	if len(first) != 1 {
		t.Fatalf("first Receive returned %d messages, want 1", len(first))
	}
	if !first[0].Read {
		t.Error("received message should be marked read")
	}

	second := s.Receive("tester")
	if len(second) != 0 {
		t.Errorf("second Receive returned %d messages, want 0", len(second))
	}
}

func TestReceivePriorityThenFIFO(t *testing.T) {
	s := newTestStore()
	s.Send("reviewer", "tester", "low-1", 1)
	s.Send("reviewer", "tester", "high", 9)
	s.Send("docs", "tester", "low-2", 1)

	got := s.Receive("tester")
	if len(got) != 3 {
		t.Fatalf("Receive returned %d messages, want 3", len(got))
	}
	want := []string{"high", "low-1", "low-2"}
	for i, w := range want {
		if got[i].Payload != w {
			t.Errorf("message %d = %v, want %q (priority desc, FIFO within priority)", i, got[i].Payload, w)
		}
	}
}

func TestSendToNonParticipantFails(t *testing.T) {
	s := newTestStore()
	if err := s.Send("reviewer", "stranger", "hi", 0); err == nil {
		t.Error("sending to a non-participant should fail")
	}
}

func TestBroadcastSkipsSender(t *testing.T) {
	s := newTestStore()
	if err := s.Broadcast("reviewer", "done", 3); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if n := len(s.Receive("reviewer")); n != 0 {
		t.Errorf("sender received %d of its own broadcast messages", n)
	}
	for _, id := range []string{"tester", "docs"} {
		if n := len(s.Receive(id)); n != 1 {
			t.Errorf("%s received %d messages, want 1", id, n)
		}
	}
}

func TestContextLastWriterWins(t *testing.T) {
	s := newTestStore()
	s.SetContext("finding", "v1")
	s.SetContext("finding", "v2")
	v, ok := s.GetContext("finding")
	if !ok || v != "v2" {
		t.Errorf("GetContext = %v, %v; want v2, true", v, ok)
	}
	if _, ok := s.GetContext("missing"); ok {
		t.Error("missing key should report not found")
	}
}

func TestContextConcurrentWriters(t *testing.T) {
	s := newTestStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.SetContext("counter", n)
			s.GetContext("counter")
		}(i)
	}
	wg.Wait()
	if _, ok := s.GetContext("counter"); !ok {
		t.Error("a write must be visible after all writers finish")
	}
}

func TestResultsLatestAttemptWithHistory(t *testing.T) {
	s := newTestStore()
	s.RecordResult(models.WorkerResult{WorkerID: "tester", Attempt: 1, Status: models.StatusFailure, Error: "flake"})
	s.RecordResult(models.WorkerResult{WorkerID: "reviewer", Attempt: 1, Status: models.StatusSuccess, Output: "lgtm"})
	s.RecordResult(models.WorkerResult{WorkerID: "tester", Attempt: 2, Status: models.StatusSuccess, Output: "passed"})

	results := s.Results()
	if len(results) != 2 {
		t.Fatalf("Results returned %d entries, want 2 (one per worker)", len(results))
	}
	if results[0].WorkerID != "tester" || results[0].Status != models.StatusSuccess {
		t.Errorf("tester current result = %+v, want the second attempt's success", results[0])
	}
	if results[1].WorkerID != "reviewer" {
		t.Errorf("result order should follow first-recorded order, got %s second", results[1].WorkerID)
	}

	hist := s.History("tester")
	if len(hist) != 2 || hist[0].Attempt != 1 || hist[1].Attempt != 2 {
		t.Errorf("History = %+v, want both attempts oldest first", hist)
	}
}

func TestPartialArtifactsRoundTrip(t *testing.T) {
	s := newTestStore()
	s.ReportPartial("reviewer", []string{"notes.md"})
	s.ReportPartial("reviewer", []string{"notes.md", "draft.md"})
	got := s.PartialArtifacts("reviewer")
	if len(got) != 2 || got[1] != "draft.md" {
		t.Errorf("PartialArtifacts = %v, want the latest report", got)
	}
	if got := s.PartialArtifacts("tester"); len(got) != 0 {
		t.Errorf("worker with no reports should yield empty, got %v", got)
	}
}

func TestResetKeepsParticipants(t *testing.T) {
	s := newTestStore()
	s.Send("reviewer", "tester", "x", 0)
	s.SetContext("k", "v")
	s.RecordResult(models.WorkerResult{WorkerID: "reviewer", Attempt: 1, Status: models.StatusSuccess})
	s.Reset()

	if n := len(s.Receive("tester")); n != 0 {
		t.Errorf("mailbox survived reset with %d messages", n)
	}
	if _, ok := s.GetContext("k"); ok {
		t.Error("context survived reset")
	}
	if n := len(s.Results()); n != 0 {
		t.Errorf("results survived reset: %d entries", n)
	}
	if err := s.Send("reviewer", "tester", "again", 0); err != nil {
		t.Errorf("participants should survive reset, Send failed: %v", err)
	}
}
