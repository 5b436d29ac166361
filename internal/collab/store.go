// Package collab is the shared state between workers in one run: a
// priority mailbox per worker, a last-writer-wins key/value context,
// and a results ledger that keeps every invocation attempt. All access
// goes through the store's methods; the locking discipline lives here
// and nowhere else, and no lock is ever held across a blocking call.
package collab

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/agentmux/agentmux/pkg/models"
)

// DefaultMailboxSoftCap is the unread-message count above which the
// store logs a warning. Delivery still succeeds.
const DefaultMailboxSoftCap = 1000

type mailbox struct {
	mu     sync.Mutex
	unread []models.AgentMessage
}

// Store holds the collaboration state for one orchestration run.
type Store struct {
	softCap int

	mu        sync.RWMutex
	mailboxes map[string]*mailbox

	ctxMu  sync.RWMutex
	shared map[string]any

	resMu   sync.RWMutex
	history map[string][]models.WorkerResult
	order   []string

	artMu   sync.Mutex
	partial map[string][]string
}

// NewStore builds a store for the given participants. Only
// participants can receive messages; sends to anyone else fail.
func NewStore(participants []string) *Store {
	s := &Store{
		softCap:   DefaultMailboxSoftCap,
		mailboxes: make(map[string]*mailbox, len(participants)),
		shared:    make(map[string]any),
		history:   make(map[string][]models.WorkerResult),
		partial:   make(map[string][]string),
	}
	for _, p := range participants {
		s.mailboxes[p] = &mailbox{}
	}
	return s
}

// SetMailboxSoftCap overrides the warning threshold. Zero or negative
// disables the warning.
func (s *Store) SetMailboxSoftCap(n int) { s.softCap = n }

// Participants returns the workers registered with the store, sorted.
func (s *Store) Participants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.mailboxes))
	for id := range s.mailboxes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Send appends a message to the recipient's mailbox. The recipient
// must be a participant in the current run.
func (s *Store) Send(from, to string, payload any, priority int) error {
	s.mu.RLock()
	mb, ok := s.mailboxes[to]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send to %q: not a participant in this run", to)
	}

	msg := models.NewMessage(from, to, payload, priority)
	mb.mu.Lock()
	mb.unread = append(mb.unread, msg)
	n := len(mb.unread)
	mb.mu.Unlock()

	if s.softCap > 0 && n > s.softCap {
		log.Printf("[collab] mailbox for %s holds %d unread messages, above soft cap %d", to, n, s.softCap)
	}
	return nil
}

// Broadcast sends the payload to every participant except the sender.
func (s *Store) Broadcast(from string, payload any, priority int) error {
	for _, to := range s.Participants() {
		if to == from {
			continue
		}
		if err := s.Send(from, to, payload, priority); err != nil {
			return err
		}
	}
	return nil
}

// Receive returns and marks read every unread message for the worker,
// ordered by priority descending then arrival time. A second call with
// no intervening send returns an empty slice; read messages are never
// redelivered. Receive never blocks.
func (s *Store) Receive(workerID string) []models.AgentMessage {
	s.mu.RLock()
	mb, ok := s.mailboxes[workerID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	mb.mu.Lock()
	msgs := mb.unread
	mb.unread = nil
	mb.mu.Unlock()

	// Stable keeps FIFO order within a priority level.
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Priority > msgs[j].Priority
	})
	for i := range msgs {
		msgs[i].Read = true
	}
	return msgs
}

// SetContext writes a shared value. Concurrent writers to the same key
// resolve last-writer-wins.
func (s *Store) SetContext(key string, value any) {
	s.ctxMu.Lock()
	s.shared[key] = value
	s.ctxMu.Unlock()
}

// GetContext reads a shared value.
func (s *Store) GetContext(key string) (any, bool) {
	s.ctxMu.RLock()
	defer s.ctxMu.RUnlock()
	v, ok := s.shared[key]
	return v, ok
}

// ContextSnapshot copies the shared context for handing to a worker.
func (s *Store) ContextSnapshot() map[string]any {
	s.ctxMu.RLock()
	defer s.ctxMu.RUnlock()
	out := make(map[string]any, len(s.shared))
	for k, v := range s.shared {
		out[k] = v
	}
	return out
}

// RecordResult appends an attempt record to the worker's history.
// Retries add records rather than overwrite; Results exposes only the
// latest attempt while History keeps everything for audit.
func (s *Store) RecordResult(r models.WorkerResult) {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	if _, seen := s.history[r.WorkerID]; !seen {
		s.order = append(s.order, r.WorkerID)
	}
	s.history[r.WorkerID] = append(s.history[r.WorkerID], r)
}

// Results returns the current (latest-attempt) result per worker, in
// the order workers were first recorded.
func (s *Store) Results() []models.WorkerResult {
	s.resMu.RLock()
	defer s.resMu.RUnlock()
	out := make([]models.WorkerResult, 0, len(s.order))
	for _, id := range s.order {
		attempts := s.history[id]
		out = append(out, attempts[len(attempts)-1])
	}
	return out
}

// History returns every recorded attempt for the worker, oldest first.
func (s *Store) History(workerID string) []models.WorkerResult {
	s.resMu.RLock()
	defer s.resMu.RUnlock()
	attempts := s.history[workerID]
	out := make([]models.WorkerResult, len(attempts))
	copy(out, attempts)
	return out
}

// ReportPartial records the worker's partial artifacts so far. A
// running worker calls this as it produces output; if the run is
// cancelled, the last report becomes the Cancelled result's artifacts.
func (s *Store) ReportPartial(workerID string, artifacts []string) {
	s.artMu.Lock()
	defer s.artMu.Unlock()
	cp := make([]string, len(artifacts))
	copy(cp, artifacts)
	s.partial[workerID] = cp
}

// PartialArtifacts returns the worker's last-reported partial output.
func (s *Store) PartialArtifacts(workerID string) []string {
	s.artMu.Lock()
	defer s.artMu.Unlock()
	arts := s.partial[workerID]
	out := make([]string, len(arts))
	copy(out, arts)
	return out
}

// Reset drops every mailbox, context entry, result, and partial
// report, keeping the participant set.
func (s *Store) Reset() {
	s.mu.Lock()
	for id := range s.mailboxes {
		s.mailboxes[id] = &mailbox{}
	}
	s.mu.Unlock()

	s.ctxMu.Lock()
	s.shared = make(map[string]any)
	s.ctxMu.Unlock()

	s.resMu.Lock()
	s.history = make(map[string][]models.WorkerResult)
	s.order = nil
	s.resMu.Unlock()

	s.artMu.Lock()
	s.partial = make(map[string][]string)
	s.artMu.Unlock()
}
