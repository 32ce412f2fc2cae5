package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/cukemsg/internal/messages"
)

// NewRunID returns a time-ordered run id.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// BeginRun records a new run.
// Uses ON CONFLICT(id) DO NOTHING so reopening a run is harmless.
func (s *Store) BeginRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, runID, startedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("begin run %s: %w", runID, err)
	}
	return nil
}

// Append writes one envelope to the run's log and returns its seq.
// The run must have been recorded with BeginRun (foreign key).
func (s *Store) Append(ctx context.Context, runID, feature string, e *messages.Envelope) (int64, error) {
	body, err := messages.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("append envelope: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO envelopes (run_id, feature, kind, body)
		VALUES (?, ?, ?, ?)
	`, runID, feature, e.Kind(), string(body))
	if err != nil {
		return 0, fmt.Errorf("append %s envelope: %w", e.Kind(), err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append %s envelope: %w", e.Kind(), err)
	}
	return seq, nil
}
