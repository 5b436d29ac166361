package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentmux/agentmux/internal/orchestrator"
	"github.com/agentmux/agentmux/pkg/models"
)

// SaveRun persists a finished run and its worker results in one
// transaction.
func (db *DB) SaveRun(res *orchestrator.RunResult) error {
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (id, goal, status, strategy, summary, started_at, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, res.RunID, res.Goal, string(res.Status), string(res.Strategy), res.Summary,
			formatTime(res.StartedAt), res.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("insert run %s: %w", res.RunID, err)
		}

		for _, r := range res.Results {
			artifacts, err := json.Marshal(r.Artifacts)
			if err != nil {
				return fmt.Errorf("encode artifacts for %s: %w", r.WorkerID, err)
			}
			_, err = tx.Exec(`
				INSERT INTO worker_results (run_id, worker_id, attempt, status, output, error, artifacts, started_at, finished_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, res.RunID, r.WorkerID, r.Attempt, string(r.Status), r.Output, r.Error,
				string(artifacts), formatTime(r.StartedAt), formatTime(r.FinishedAt))
			if err != nil {
				return fmt.Errorf("insert result for %s: %w", r.WorkerID, err)
			}
		}
		return nil
	})
}

// RunRecord is a persisted run summary.
type RunRecord struct {
	// RunID identifies the run.
	RunID string
	// Goal is the orchestrated goal.
	Goal string
	// Status is the terminal run status.
	Status string
	// Strategy is the concurrency plan that was used.
	Strategy string
	// Summary is the aggregated answer.
	Summary string
	// StartedAt is when the run began.
	StartedAt time.Time
	// Duration is the total execution time.
	Duration time.Duration
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, goal, status, strategy, summary, started_at, duration_ms
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var startedAt string
		var durationMS int64
		if err := rows.Scan(&rec.RunID, &rec.Goal, &rec.Status, &rec.Strategy, &rec.Summary, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if rec.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse run time: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RunResults returns the persisted worker results for one run.
func (db *DB) RunResults(runID string) ([]models.WorkerResult, error) {
	rows, err := db.Query(`
		SELECT worker_id, attempt, status, output, error, artifacts, started_at, finished_at
		FROM worker_results WHERE run_id = ? ORDER BY started_at, worker_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("load results for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []models.WorkerResult
	for rows.Next() {
		var r models.WorkerResult
		var status, artifacts, startedAt, finishedAt string
		if err := rows.Scan(&r.WorkerID, &r.Attempt, &status, &r.Output, &r.Error, &artifacts, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Status = models.WorkerStatus(status)
		if artifacts != "" {
			if err := json.Unmarshal([]byte(artifacts), &r.Artifacts); err != nil {
				return nil, fmt.Errorf("decode artifacts for %s: %w", r.WorkerID, err)
			}
		}
		if r.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse result time: %w", err)
		}
		if r.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, fmt.Errorf("parse result time: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PurgeOldRuns deletes runs older than the given duration and returns
// how many were removed.
func (db *DB) PurgeOldRuns(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))
	var count int64
	err := db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("purge old runs: %w", err)
		}
		count, err = res.RowsAffected()
		return err
	})
	return count, err
}
