// Package models defines the shared value types used across agentmux.
package models

// WorkerSpec describes a configured worker: what it can do and which
// resources it touches. Specs are loaded from configuration and never
// mutated by the orchestrator.
type WorkerSpec struct {
	// ID is the unique identifier for this worker.
	ID string `json:"id" yaml:"id"`
	// Skills lists the skill keywords this worker declares (e.g. "review", "testing").
	Skills []string `json:"skills" yaml:"skills"`
	// Scopes lists the resource scopes this worker reads or writes
	// (opaque strings, typically file paths or module names).
	Scopes []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	// Critical marks a worker whose fatal failure stops the rest of the run
	// from starting new work.
	Critical bool `json:"critical,omitempty" yaml:"critical,omitempty"`
	// Description is an optional human-readable summary of the worker.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Valid returns true if the spec has an ID and at least one skill.
func (s WorkerSpec) Valid() bool {
	return s.ID != "" && len(s.Skills) > 0
}

// HasSkill returns true if the worker declares the given skill keyword.
func (s WorkerSpec) HasSkill(skill string) bool {
	for _, sk := range s.Skills {
		if sk == skill {
			return true
		}
	}
	return false
}

// SharesScope returns true if the two specs declare at least one
// resource scope in common.
func (s WorkerSpec) SharesScope(other WorkerSpec) bool {
	for _, a := range s.Scopes {
		for _, b := range other.Scopes {
			if a == b {
				return true
			}
		}
	}
	return false
}
