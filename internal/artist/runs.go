package artist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunRunning     = "running"
	RunCompleted   = "completed"
	RunInterrupted = "interrupted"
	RunFailed      = "failed"
)

// Run is the persisted record of one enrichment batch.
type Run struct {
	ID         string     `json:"id"`
	Field      Field      `json:"field"`
	Trigger    string     `json:"trigger"`
	Status     string     `json:"status"`
	Requested  int        `json:"requested"`
	Total      int        `json:"total"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Enriched   int        `json:"enriched"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StartRun records the beginning of a batch and returns it with a fresh ID.
func (s *Service) StartRun(ctx context.Context, field Field, trigger string, requested int) (*Run, error) {
	r := &Run{
		ID:        uuid.New().String(),
		Field:     field,
		Trigger:   trigger,
		Status:    RunRunning,
		Requested: requested,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrich_runs (id, field, trigger, status, requested, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, string(r.Field), r.Trigger, r.Status, r.Requested, r.StartedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}
	return r, nil
}

// FinishRun stores the final counters and status of r.
func (s *Service) FinishRun(ctx context.Context, r *Run) error {
	now := time.Now().UTC()
	r.FinishedAt = &now
	_, err := s.db.ExecContext(ctx, `
		UPDATE enrich_runs SET
			status = ?, total = ?, succeeded = ?, failed = ?, enriched = ?,
			error = ?, finished_at = ?
		WHERE id = ?
	`, r.Status, r.Total, r.Succeeded, r.Failed, r.Enriched, r.Error, now.Format(time.RFC3339), r.ID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, field, trigger, status, requested, total, succeeded, failed, enriched,
			error, started_at, finished_at
		FROM enrich_runs ORDER BY started_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var r Run
		var field, startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&r.ID, &field, &r.Trigger, &r.Status, &r.Requested, &r.Total,
			&r.Succeeded, &r.Failed, &r.Enriched, &r.Error, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		r.Field = Field(field)
		r.StartedAt = parseTime(startedAt)
		if finishedAt.Valid {
			t := parseTime(finishedAt.String)
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}
	return runs, nil
}
