package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/cukemsg/internal/messages"
)

// ErrNoRuns is returned by LatestRun on an empty store.
var ErrNoRuns = errors.New("store has no runs")

// Run is a recorded test run.
type Run struct {
	ID        string
	StartedAt time.Time
	Envelopes int64
}

// Record is one stored envelope.
type Record struct {
	Seq      int64
	Feature  string
	Envelope *messages.Envelope
}

// Runs lists every run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, COUNT(e.seq)
		FROM runs r
		LEFT JOIN envelopes e ON e.run_id = r.id
		GROUP BY r.id, r.started_at
		ORDER BY r.started_at ASC, r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return runs[len(runs)-1], nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run     Run
		started string
	)
	if err := rows.Scan(&run.ID, &started, &run.Envelopes); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: bad started_at %q: %w", run.ID, started, err)
	}
	run.StartedAt = t
	return run, nil
}

// CountByKind returns how many envelopes of each kind a run holds.
func (s *Store) CountByKind(ctx context.Context, runID string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM envelopes
		WHERE run_id = ?
		GROUP BY kind
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("count envelopes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			kind string
			n    int64
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("count envelopes: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
