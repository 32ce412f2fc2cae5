package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cukemsg/internal/broker"
	"github.com/roach88/cukemsg/internal/config"
	"github.com/roach88/cukemsg/internal/convert"
	"github.com/roach88/cukemsg/internal/formatter"
	"github.com/roach88/cukemsg/internal/ids"
	"github.com/roach88/cukemsg/internal/publisher"
)

// DefaultShutdownTimeout bounds how long formatters may take to drain.
const DefaultShutdownTimeout = 30 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config          string
	ShutdownTimeout time.Duration

	// Environ overrides os.Environ() for configuration lookups (for testing).
	Environ []string
	// Clock overrides time.Now for message timestamps (for testing).
	Clock func() time.Time
}

// RunResult summarises a played run.
type RunResult struct {
	Success    bool     `json:"success"`
	Formatters []string `json:"formatters"`
	Config     string   `json:"config,omitempty"`
}

func (r RunResult) String() string {
	status := "passed"
	if !r.Success {
		status = "failed"
	}
	if len(r.Formatters) == 0 {
		return fmt.Sprintf("Run %s (no formatters enabled)", status)
	}
	return fmt.Sprintf("Run %s, reported to: %v", status, r.Formatters)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Play a scripted test run through the configured formatters",
		Long: `Play a scripted test run and publish its messages.

The script names Gherkin document trees and the outcome of each scenario
step. Every message is broadcast to the formatters enabled in the
configuration file (cukemsg.json, .yaml, .yml or .cue in the working
directory, or --config) and the CUKEMSG_FORMATTERS environment variables.

Exit codes:
  0 - Run passed
  1 - Run failed (a scenario failed or was left unfinished)
  2 - Command error (bad script, bad configuration)

Examples:
  cukemsg run script.yaml
  CUKEMSG_FORMATTERS_HTML=true cukemsg run script.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to configuration file")
	cmd.Flags().DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", DefaultShutdownTimeout, "maximum time to wait for formatters to finish")

	return cmd
}

func runScript(opts *RunOptions, scriptPath string, cmd *cobra.Command) error {
	out := newOutput(opts.RootOptions, cmd)

	// Configure logging based on verbose flag
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	script, err := publisher.LoadScriptFile(scriptPath)
	if err != nil {
		_ = out.Error(ErrCodeInvalidInput, "invalid script", err.Error())
		return WrapExitError(ExitCommandError, "failed to load script", err)
	}

	cfgOpts := []config.Option{}
	if opts.Config != "" {
		cfgOpts = append(cfgOpts, config.WithFile(opts.Config))
	}
	if opts.Environ != nil {
		cfgOpts = append(cfgOpts, config.WithEnviron(opts.Environ))
	}
	if opts.Clock != nil {
		cfgOpts = append(cfgOpts, config.WithNow(opts.Clock))
	}
	cfg, err := config.Load(cfgOpts...)
	if err != nil {
		_ = out.Error(ErrCodeConfig, "invalid configuration", err.Error())
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if cfg.Source != "" {
		slog.Debug("configuration loaded", "source", cfg.Source)
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// Formatters outlive an interrupted run; the shutdown timeout bounds them.
	formatters := formatter.Build(cfg, logger)
	sinks := make([]broker.Sink, 0, len(formatters))
	for _, f := range formatters {
		f.Launch(context.WithoutCancel(ctx))
		sinks = append(sinks, f)
	}
	b := broker.New(logger, sinks...)
	slog.Info("run starting", "script", scriptPath, "formatters", b.Names())

	pubOpts := []publisher.Option{publisher.WithLogger(logger)}
	if opts.Clock != nil {
		pubOpts = append(pubOpts, publisher.WithClock(opts.Clock))
	}
	conv := convert.New(ids.New(cfg.IDGenerationStyle), nil, convert.WithLogger(logger))
	pub := publisher.New(b, conv, pubOpts...)

	success, playErr := publisher.Play(ctx, pub, script, filepath.Dir(scriptPath))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer shutdownCancel()
	if err := b.Close(shutdownCtx); err != nil {
		slog.Warn("formatters did not shut down cleanly", "error", err)
	}

	if playErr != nil {
		if errors.Is(playErr, context.Canceled) {
			return WrapExitError(ExitFailure, "run interrupted", playErr)
		}
		_ = out.Error(ErrCodeGeneric, "run aborted", playErr.Error())
		return WrapExitError(ExitCommandError, "run aborted", playErr)
	}

	slog.Info("run finished", "success", success)
	if err := out.Success(RunResult{Success: success, Formatters: b.Names(), Config: cfg.Source}); err != nil {
		return err
	}
	if !success {
		return NewExitError(ExitFailure, "run failed")
	}
	return nil
}
