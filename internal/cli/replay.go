package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cukemsg/internal/messages"
	"github.com/roach88/cukemsg/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	Feature  string // optional - one feature's envelopes only
	Output   string
	List     bool
}

// RunInfo describes one stored run.
type RunInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Envelopes int64     `json:"envelopes"`
}

// RunList is the result of replay --list.
type RunList struct {
	Runs []RunInfo `json:"runs"`
}

func (l RunList) String() string {
	if len(l.Runs) == 0 {
		return "No runs found in database."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d run(s):", len(l.Runs))
	for _, r := range l.Runs {
		fmt.Fprintf(&b, "\n  %s  %s  %d envelope(s)", r.ID, r.StartedAt.Format(time.RFC3339), r.Envelopes)
	}
	return b.String()
}

// ReplaySummary reports a run replayed into a file.
type ReplaySummary struct {
	RunID     string           `json:"run_id"`
	Output    string           `json:"output"`
	Envelopes int              `json:"envelopes"`
	Kinds     map[string]int64 `json:"kinds,omitempty"`
}

func (s ReplaySummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Replayed %d envelope(s) from run %s to %s", s.Envelopes, s.RunID, s.Output)
	kinds := make([]string, 0, len(s.Kinds))
	for k := range s.Kinds {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "\n  %-20s %d", k, s.Kinds[k])
	}
	return b.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a stored run as NDJSON messages",
		Long: `Replay a run recorded by the sqlite formatter.

Envelopes are written in publish order, one per line, to stdout unless
--output is given. Without --run the most recent run is replayed.

Exit codes:
  0 - Run replayed
  2 - Command error (database not found, unknown run, etc.)

Examples:
  cukemsg replay --db ./cucumber_messages.db
  cukemsg replay --db ./cucumber_messages.db --list
  cukemsg replay --db ./cucumber_messages.db --run 0192... --feature Calculator -o calc.ndjson`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay a specific run")
	cmd.Flags().StringVar(&opts.Feature, "feature", "", "replay one feature's envelopes only")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write envelopes to file instead of stdout")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list stored runs instead of replaying")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := newOutput(opts.RootOptions, cmd)

	// Opening would create a missing database.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = out.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.List {
		list := RunList{Runs: make([]RunInfo, 0, len(runs))}
		for _, r := range runs {
			list.Runs = append(list.Runs, RunInfo{ID: r.ID, StartedAt: r.StartedAt, Envelopes: r.Envelopes})
		}
		return out.Success(list)
	}

	runID, err := selectRun(ctx, st, runs, opts.RunID)
	if err != nil {
		_ = out.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "no run to replay", err)
	}
	out.VerboseLog("Replaying run %s", runID)

	if opts.Output == "" {
		bw := bufio.NewWriter(cmd.OutOrStdout())
		if _, err := writeRun(ctx, st, runID, opts.Feature, bw); err != nil {
			return WrapExitError(ExitCommandError, "replay failed", err)
		}
		return bw.Flush()
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output file", err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	n, err := writeRun(ctx, st, runID, opts.Feature, bw)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}
	if err := bw.Flush(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if err := f.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to close output file", err)
	}

	summary := ReplaySummary{RunID: runID, Output: opts.Output, Envelopes: n}
	if opts.Feature == "" {
		summary.Kinds, err = st.CountByKind(ctx, runID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count envelopes", err)
		}
	}
	return out.Success(summary)
}

func selectRun(ctx context.Context, st *store.Store, runs []store.Run, want string) (string, error) {
	if want == "" {
		run, err := st.LatestRun(ctx)
		if errors.Is(err, store.ErrNoRuns) {
			return "", fmt.Errorf("database has no runs")
		}
		if err != nil {
			return "", err
		}
		return run.ID, nil
	}
	for _, r := range runs {
		if r.ID == want {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("run %q not found", want)
}

// writeRun writes a run's envelopes, optionally restricted to one feature.
func writeRun(ctx context.Context, st *store.Store, runID, feature string, w io.Writer) (int, error) {
	if feature == "" {
		return st.WriteNDJSON(ctx, runID, w)
	}
	mw := messages.NewWriter(w)
	err := st.Replay(ctx, runID, func(r store.Record) error {
		if r.Feature != feature {
			return nil
		}
		return mw.Write(r.Envelope)
	})
	return mw.Count(), err
}
