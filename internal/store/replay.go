package store

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/cukemsg/internal/messages"
)

// Replay calls fn for every envelope of a run in publish order.
// Iteration stops at the first error from fn. fn must not call back into
// the store: the single connection is held until Replay returns.
func (s *Store) Replay(ctx context.Context, runID string, fn func(Record) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, feature, body FROM envelopes
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("replay run %s: %w", runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec  Record
			body string
		)
		if err := rows.Scan(&rec.Seq, &rec.Feature, &body); err != nil {
			return fmt.Errorf("replay run %s: %w", runID, err)
		}
		rec.Envelope, err = messages.Unmarshal([]byte(body))
		if err != nil {
			return fmt.Errorf("replay run %s: seq %d: %w", runID, rec.Seq, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("replay run %s: %w", runID, err)
	}
	return nil
}

// ReadRun returns every envelope of a run in publish order.
func (s *Store) ReadRun(ctx context.Context, runID string) ([]Record, error) {
	var out []Record
	err := s.Replay(ctx, runID, func(r Record) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// WriteNDJSON writes a run as NDJSON and returns the number of envelopes.
func (s *Store) WriteNDJSON(ctx context.Context, runID string, w io.Writer) (int, error) {
	nw := messages.NewWriter(w)
	err := s.Replay(ctx, runID, func(r Record) error {
		return nw.Write(r.Envelope)
	})
	return nw.Count(), err
}
