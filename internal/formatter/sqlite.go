package formatter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/cukemsg/internal/messages"
	"github.com/roach88/cukemsg/internal/store"
)

// SQLiteTarget appends every envelope to a run in an envelope store.
type SQLiteTarget struct {
	path string
	now  func() time.Time

	store *store.Store
	runID string
}

// NewSQLiteTarget returns a target writing to the database at path.
func NewSQLiteTarget(path string) *SQLiteTarget {
	return &SQLiteTarget{path: path, now: time.Now}
}

// Path returns the database file.
func (t *SQLiteTarget) Path() string { return t.path }

// RunID returns the id of the run being written, or "" before Open.
func (t *SQLiteTarget) RunID() string { return t.runID }

// Open opens the store and records a new run.
func (t *SQLiteTarget) Open(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	s, err := store.Open(t.path)
	if err != nil {
		return err
	}
	runID := store.NewRunID()
	if err := s.BeginRun(ctx, runID, t.now()); err != nil {
		s.Close()
		return err
	}
	t.store = s
	t.runID = runID
	return nil
}

func (t *SQLiteTarget) Write(ctx context.Context, msg messages.Tagged) error {
	if msg.IsCloseSentinel() {
		return nil
	}
	_, err := t.store.Append(ctx, t.runID, msg.Feature, msg.Envelope)
	return err
}

func (t *SQLiteTarget) Close() error {
	return t.store.Close()
}
