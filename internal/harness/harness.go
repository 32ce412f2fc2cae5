// Package harness provides a conformance testing framework for the message
// stream.
//
// A scenario names a run script. The harness plays it through a real
// publisher and broker with a deterministic clock and incrementing ids,
// records every message, and evaluates the scenario's assertions against
// the recorded trace. Traces can be compared against golden files.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/roach88/cukemsg/internal/broker"
	"github.com/roach88/cukemsg/internal/convert"
	"github.com/roach88/cukemsg/internal/ids"
	"github.com/roach88/cukemsg/internal/messages"
	"github.com/roach88/cukemsg/internal/publisher"
	"github.com/roach88/cukemsg/internal/testutil"
)

// TraceEvent is one message the publisher emitted.
type TraceEvent struct {
	Seq      int                `json:"seq"`
	Feature  string             `json:"feature,omitempty"`
	Kind     string             `json:"kind"` // envelope kind, or "close" for a sentinel
	Detail   string             `json:"detail,omitempty"`
	Envelope *messages.Envelope `json:"-"`
}

// String renders the event as one golden trace line.
func (e TraceEvent) String() string {
	feature := e.Feature
	if feature == "" {
		feature = "-"
	}
	if e.Detail == "" {
		return fmt.Sprintf("%d %s %s", e.Seq, feature, e.Kind)
	}
	return fmt.Sprintf("%d %s %s %s", e.Seq, feature, e.Kind, e.Detail)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Success is the run outcome reported by the publisher.
	Success bool `json:"success"`

	// Trace contains every published message in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load the run script
// 2. Play it through a publisher backed by a recording sink
// 3. Build the trace from the recorded messages
// 4. Evaluate assertions against the trace
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	script, err := publisher.LoadScriptFile(scenario.Script)
	if err != nil {
		return nil, fmt.Errorf("failed to load script: %w", err)
	}

	style := ids.StyleIncrementing
	if scenario.IDStyle != "" {
		style, err = ids.ParseStyle(scenario.IDStyle)
		if err != nil {
			return nil, err
		}
	}

	// Suppress logs in tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewDeterministicClock()
	sink := testutil.NewRecordingSink("harness")
	b := broker.New(logger, sink)

	pub := publisher.New(b, convert.New(ids.New(style), nil, convert.WithLogger(logger)),
		publisher.WithClock(clock.Now),
		publisher.WithLogger(logger),
		publisher.WithImplementation("cukemsg-harness", "0.0.0"),
	)

	success, err := publisher.Play(ctx, pub, script, filepath.Dir(scenario.Script))
	if closeErr := b.Close(ctx); closeErr != nil {
		return nil, fmt.Errorf("failed to close broker: %w", closeErr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to play script: %w", err)
	}

	result := NewResult()
	result.Success = success
	for i, msg := range sink.Received() {
		result.Trace = append(result.Trace, traceEvent(i+1, msg))
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func traceEvent(seq int, msg messages.Tagged) TraceEvent {
	ev := TraceEvent{Seq: seq, Feature: msg.Feature, Envelope: msg.Envelope}
	if msg.IsCloseSentinel() {
		ev.Kind = "close"
		return ev
	}
	e := msg.Envelope
	ev.Kind = e.Kind()
	switch {
	case e.Pickle != nil:
		ev.Detail = e.Pickle.Name
	case e.TestCaseStarted != nil:
		ev.Detail = fmt.Sprintf("attempt=%d", e.TestCaseStarted.Attempt)
	case e.TestStepFinished != nil:
		ev.Detail = e.TestStepFinished.TestStepResult.Status.String()
	case e.Attachment != nil:
		ev.Detail = e.Attachment.MediaType
	case e.ExternalAttachment != nil:
		ev.Detail = e.ExternalAttachment.MediaType
	case e.TestRunFinished != nil:
		ev.Detail = fmt.Sprintf("success=%t", e.TestRunFinished.Success)
	}
	return ev
}
