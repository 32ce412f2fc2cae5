// Package publisher turns test execution into the Cucumber message stream.
//
// A Publisher tracks one test run. Features are started with StartFeature,
// which emits the feature's Source, GherkinDocument and Pickles; scenarios
// and their steps are then reported through the returned Feature and
// Scenario trackers. Every envelope goes to a Broker tagged with the
// feature it belongs to; run-level envelopes carry no feature.
//
// The emitted order is:
//
//	Meta, TestRunStarted
//	per feature: Source, GherkinDocument, Pickle...
//	  per scenario: TestCase, TestCaseStarted,
//	    (TestStepStarted, Attachment..., TestStepFinished)..., TestCaseFinished
//	  feature close sentinel
//	TestRunFinished
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/roach88/cukemsg/internal/convert"
	"github.com/roach88/cukemsg/internal/gherkin"
	"github.com/roach88/cukemsg/internal/ids"
	"github.com/roach88/cukemsg/internal/messages"
	"github.com/roach88/cukemsg/internal/picklejar"
)

// ProtocolVersion is the Cucumber Messages version reported in Meta.
const ProtocolVersion = "27.0.0"

var (
	// ErrRunNotStarted is returned when reporting before StartRun.
	ErrRunNotStarted = errors.New("test run not started")
	// ErrRunFinished is returned when reporting after FinishRun.
	ErrRunFinished = errors.New("test run already finished")
)

// Broker receives every envelope the publisher emits.
type Broker interface {
	Publish(ctx context.Context, msg messages.Tagged)
}

// Publisher tracks a single test run.
//
// Thread-safety: features and scenarios may be reported from different
// goroutines.
type Publisher struct {
	broker         Broker
	conv           *convert.Converter
	gen            ids.Generator
	style          ids.Style
	now            func() time.Time
	logger         *slog.Logger
	implementation messages.Product

	mu           sync.Mutex
	runStartedID string
	finished     bool
	features     map[string]*Feature
	order        []*Feature
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock sets the clock used for timestamps. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithImplementation names the tool reported in Meta.
func WithImplementation(name, version string) Option {
	return func(p *Publisher) { p.implementation = messages.Product{Name: name, Version: version} }
}

// New creates a publisher. Ids for everything it emits come from the
// converter's generator, so documents, pickles and test cases share one id
// namespace.
func New(b Broker, conv *convert.Converter, opts ...Option) *Publisher {
	gen := conv.Generator()
	p := &Publisher{
		broker:         b,
		conv:           conv,
		gen:            gen,
		style:          styleOf(gen),
		now:            time.Now,
		logger:         slog.Default(),
		implementation: messages.Product{Name: "cukemsg"},
		features:       make(map[string]*Feature),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func styleOf(gen ids.Generator) ids.Style {
	if _, ok := gen.(*ids.Incrementing); ok {
		return ids.StyleIncrementing
	}
	return ids.StyleUUID
}

// TestRunStartedID returns the id of the run, or "" before StartRun.
func (p *Publisher) TestRunStartedID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runStartedID
}

// StartRun emits Meta and TestRunStarted.
func (p *Publisher) StartRun(ctx context.Context) error {
	p.mu.Lock()
	if p.runStartedID != "" {
		p.mu.Unlock()
		return errors.New("test run already started")
	}
	p.runStartedID = p.gen.NewID()
	id := p.runStartedID
	p.mu.Unlock()

	p.emit(ctx, "", &messages.Meta{
		ProtocolVersion: ProtocolVersion,
		Implementation:  p.implementation,
		Runtime:         messages.Product{Name: "go", Version: runtime.Version()},
		OS:              messages.Product{Name: runtime.GOOS},
		CPU:             messages.Product{Name: runtime.GOARCH},
	})
	p.emit(ctx, "", &messages.TestRunStarted{
		ID:        id,
		Timestamp: messages.TimestampOf(p.now()),
	})
	p.logger.Debug("test run started", "testRunStartedId", id)
	return nil
}

// StartFeature converts doc and emits its Source, GherkinDocument and
// Pickles. A feature is keyed by its name (its uri when unnamed); starting
// the same key again returns the existing tracker without emitting
// anything, as happens when parallel workers share a feature. That call
// returns only once the first caller has emitted the pickles, so no
// worker can report a scenario ahead of them.
func (p *Publisher) StartFeature(ctx context.Context, doc gherkin.Document) (*Feature, error) {
	key := featureKey(doc)

	p.mu.Lock()
	if err := p.checkRunning(); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if f, ok := p.features[key]; ok {
		p.mu.Unlock()
		select {
		case <-f.ready:
			return f, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	// Converting under the lock keeps each feature's ids contiguous.
	res, err := p.conv.Convert(doc)
	if err != nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("start feature %q: %w", key, err)
	}
	gd, ps, _ := convert.Restyle(res.Document, res.Pickles, p.gen, p.style)
	f := &Feature{
		p:        p,
		key:      key,
		jar:      picklejar.New(ps),
		ready:    make(chan struct{}),
		attempts: make(map[string]int),
		cases:    make(map[string]string),
	}
	p.features[key] = f
	p.order = append(p.order, f)
	p.mu.Unlock()

	p.emit(ctx, key, res.Source)
	p.emit(ctx, key, gd)
	for i := range ps {
		p.emit(ctx, key, &ps[i])
	}
	close(f.ready)
	p.logger.Debug("feature started", "feature", key, "pickles", len(ps))
	return f, nil
}

// FinishRun emits TestRunFinished and reports whether the run succeeded:
// every started feature finished and all of its scenarios passed.
func (p *Publisher) FinishRun(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if err := p.checkRunning(); err != nil {
		p.mu.Unlock()
		return false, err
	}
	p.finished = true
	id := p.runStartedID
	features := append([]*Feature(nil), p.order...)
	p.mu.Unlock()

	success := true
	for _, f := range features {
		if !f.Success() {
			success = false
		}
	}

	p.emit(ctx, "", &messages.TestRunFinished{
		Success:          success,
		Timestamp:        messages.TimestampOf(p.now()),
		TestRunStartedID: id,
	})
	p.logger.Debug("test run finished", "success", success, "features", len(features))
	return success, nil
}

// checkRunning must be called with p.mu held.
func (p *Publisher) checkRunning() error {
	if p.runStartedID == "" {
		return ErrRunNotStarted
	}
	if p.finished {
		return ErrRunFinished
	}
	return nil
}

func (p *Publisher) emit(ctx context.Context, feature string, payload messages.Payload) {
	p.broker.Publish(ctx, messages.Tagged{Feature: feature, Envelope: messages.NewEnvelope(payload)})
}

func featureKey(doc gherkin.Document) string {
	if doc.Feature != nil && doc.Feature.Name != "" {
		return doc.Feature.Name
	}
	if doc.URI != "" {
		return doc.URI
	}
	return convert.UnknownURI
}
