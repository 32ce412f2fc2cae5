package publisher

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cukemsg/internal/broker"
	"github.com/roach88/cukemsg/internal/convert"
	"github.com/roach88/cukemsg/internal/ids"
	"github.com/roach88/cukemsg/internal/messages"
	"github.com/roach88/cukemsg/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPublisher(t *testing.T) (*Publisher, *testutil.RecordingSink) {
	t.Helper()
	sink := testutil.NewRecordingSink("rec")
	b := broker.New(quietLogger(), sink)
	conv := convert.New(ids.NewIncrementing(), nil, convert.WithLogger(quietLogger()))
	p := New(b, conv,
		WithClock(testutil.NewDeterministicClock().Now),
		WithLogger(quietLogger()),
		WithImplementation("cukemsg-test", "0.0.0"),
	)
	return p, sink
}

func runAllPassing(t *testing.T, ctx context.Context, f *Feature) {
	t.Helper()
	for {
		sc, ok, err := f.Next(ctx)
		require.NoError(t, err)
		if !ok {
			return
		}
		for range sc.Steps() {
			_, err := sc.StartStep(ctx)
			require.NoError(t, err)
			require.NoError(t, sc.FinishStep(ctx, StepResult{Status: messages.StatusPassed}))
		}
		require.NoError(t, sc.Finish(ctx))
	}
}

func scenarioKinds(steps int) []string {
	out := []string{"testCase", "testCaseStarted"}
	for range steps {
		out = append(out, "testStepStarted", "testStepFinished")
	}
	return append(out, "testCaseFinished")
}

func TestPublisher_EmitsLifecycleInOrder(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPublisher(t)

	require.NoError(t, p.StartRun(ctx))
	f, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	require.NoError(t, err)
	assert.Equal(t, "Calculator", f.Key())
	assert.Equal(t, 3, f.Pickles())

	runAllPassing(t, ctx, f)
	require.NoError(t, f.Finish(ctx))
	success, err := p.FinishRun(ctx)
	require.NoError(t, err)
	assert.True(t, success)

	want := []string{"meta", "testRunStarted", "source", "gherkinDocument", "pickle", "pickle", "pickle"}
	for range 3 {
		want = append(want, scenarioKinds(3)...)
	}
	want = append(want, "close:Calculator", "testRunFinished")
	assert.Equal(t, want, sink.Kinds())

	received := sink.Received()
	assert.Empty(t, received[0].Feature, "meta is run-level")
	assert.Empty(t, received[1].Feature, "testRunStarted is run-level")
	assert.Empty(t, received[len(received)-1].Feature, "testRunFinished is run-level")
	for _, m := range received[2 : len(received)-1] {
		assert.Equal(t, "Calculator", m.Feature)
	}

	meta := received[0].Envelope.Meta
	assert.Equal(t, ProtocolVersion, meta.ProtocolVersion)
	assert.Equal(t, messages.Product{Name: "cukemsg-test", Version: "0.0.0"}, meta.Implementation)
	assert.Equal(t, "go", meta.Runtime.Name)

	finished := received[len(received)-1].Envelope.TestRunFinished
	assert.True(t, finished.Success)
	assert.Equal(t, p.TestRunStartedID(), finished.TestRunStartedID)
}

func TestPublisher_IDsAreUniqueAndReferencesResolve(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPublisher(t)

	require.NoError(t, p.StartRun(ctx))
	f, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	require.NoError(t, err)
	runAllPassing(t, ctx, f)
	require.NoError(t, f.Finish(ctx))
	_, err = p.FinishRun(ctx)
	require.NoError(t, err)

	assert.Equal(t, "0", p.TestRunStartedID(), "the run id is minted first")

	seen := map[string]bool{}
	mint := func(id string) {
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "id %s minted twice", id)
		seen[id] = true
	}

	pickleIDs := map[string]bool{}
	pickleStepIDs := map[string]bool{}
	testStepIDs := map[string]bool{}
	testCaseIDs := map[string]bool{}
	startedIDs := map[string]bool{}

	for _, m := range sink.Received() {
		if m.IsCloseSentinel() {
			continue
		}
		e := m.Envelope
		switch {
		case e.TestRunStarted != nil:
			mint(e.TestRunStarted.ID)
		case e.GherkinDocument != nil:
			for _, id := range e.GherkinDocument.AllIDs() {
				mint(id)
			}
		case e.Pickle != nil:
			mint(e.Pickle.ID)
			pickleIDs[e.Pickle.ID] = true
			for _, s := range e.Pickle.Steps {
				mint(s.ID)
				pickleStepIDs[s.ID] = true
			}
		case e.TestCase != nil:
			mint(e.TestCase.ID)
			testCaseIDs[e.TestCase.ID] = true
			assert.True(t, pickleIDs[e.TestCase.PickleID])
			for _, s := range e.TestCase.TestSteps {
				mint(s.ID)
				testStepIDs[s.ID] = true
				assert.True(t, pickleStepIDs[s.PickleStepID])
			}
		case e.TestCaseStarted != nil:
			mint(e.TestCaseStarted.ID)
			startedIDs[e.TestCaseStarted.ID] = true
			assert.True(t, testCaseIDs[e.TestCaseStarted.TestCaseID])
		case e.TestStepStarted != nil:
			assert.True(t, startedIDs[e.TestStepStarted.TestCaseStartedID])
			assert.True(t, testStepIDs[e.TestStepStarted.TestStepID])
		case e.TestStepFinished != nil:
			assert.True(t, startedIDs[e.TestStepFinished.TestCaseStartedID])
			assert.True(t, testStepIDs[e.TestStepFinished.TestStepID])
		case e.TestCaseFinished != nil:
			assert.True(t, startedIDs[e.TestCaseFinished.TestCaseStartedID])
		}
	}
	assert.Len(t, testCaseIDs, 3)
	assert.Len(t, startedIDs, 3)
}

func TestPublisher_FailedStepFailsRun(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPublisher(t)

	require.NoError(t, p.StartRun(ctx))
	f, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	require.NoError(t, err)

	sc, err := f.StartScenario(ctx, 0)
	require.NoError(t, err)
	_, err = sc.StartStep(ctx)
	require.NoError(t, err)
	require.NoError(t, sc.FinishStep(ctx, StepResult{
		Status:    messages.StatusFailed,
		Message:   "boom",
		Exception: &messages.Exception{Type: "AssertionError", Message: "boom"},
	}))
	require.NoError(t, sc.Finish(ctx))
	assert.False(t, sc.Passed())

	require.NoError(t, f.Finish(ctx))
	assert.False(t, f.Success())

	success, err := p.FinishRun(ctx)
	require.NoError(t, err)
	assert.False(t, success)

	var result messages.TestStepResult
	for _, m := range sink.Received() {
		if m.Envelope != nil && m.Envelope.TestStepFinished != nil {
			result = m.Envelope.TestStepFinished.TestStepResult
		}
	}
	assert.Equal(t, messages.StatusFailed, result.Status)
	assert.Equal(t, "boom", result.Message)
}

func TestPublisher_UnfinishedFeatureFailsRun(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPublisher(t)

	require.NoError(t, p.StartRun(ctx))
	_, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	require.NoError(t, err)

	success, err := p.FinishRun(ctx)
	require.NoError(t, err)
	assert.False(t, success)
}

func TestPublisher_EmptyRunSucceeds(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPublisher(t)

	require.NoError(t, p.StartRun(ctx))
	success, err := p.FinishRun(ctx)
	require.NoError(t, err)
	assert.True(t, success)
	assert.Equal(t, []string{"meta", "testRunStarted", "testRunFinished"}, sink.Kinds())
}

func TestPublisher_RetryReusesTestCase(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPublisher(t)

	require.NoError(t, p.StartRun(ctx))
	f, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	require.NoError(t, err)

	first, err := f.StartScenario(ctx, 0)
	require.NoError(t, err)
	_, err = first.StartStep(ctx)
	require.NoError(t, err)
	require.NoError(t, first.FinishStep(ctx, StepResult{Status: messages.StatusFailed}))
	require.NoError(t, first.Finish(ctx))

	second, err := f.StartScenario(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Attempt())
	assert.NotEqual(t, first.TestCaseStartedID(), second.TestCaseStartedID())
	for range second.Steps() {
		_, err := second.StartStep(ctx)
		require.NoError(t, err)
		require.NoError(t, second.FinishStep(ctx, StepResult{Status: messages.StatusPassed}))
	}
	require.NoError(t, second.Finish(ctx))
	require.NoError(t, f.Finish(ctx))

	kinds := sink.Kinds()
	assert.Equal(t, 1, count(kinds, "testCase"), "a retried pickle has one TestCase")
	assert.Equal(t, 2, count(kinds, "testCaseStarted"))

	var attempts []int64
	var testCaseIDs []string
	for _, m := range sink.Received() {
		if m.Envelope != nil && m.Envelope.TestCaseStarted != nil {
			attempts = append(attempts, m.Envelope.TestCaseStarted.Attempt)
			testCaseIDs = append(testCaseIDs, m.Envelope.TestCaseStarted.TestCaseID)
		}
	}
	assert.Equal(t, []int64{0, 1}, attempts)
	assert.Equal(t, testCaseIDs[0], testCaseIDs[1])

	assert.True(t, f.Success(), "the last attempt decides")
}

func TestPublisher_StartFeatureTwiceReturnsSameTracker(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPublisher(t)

	require.NoError(t, p.StartRun(ctx))
	f1, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	require.NoError(t, err)
	f2, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	require.NoError(t, err)

	assert.Same(t, f1, f2)
	assert.Equal(t, 1, count(sink.Kinds(), "gherkinDocument"))
}

// gatedBroker holds the first source envelope until release is closed.
type gatedBroker struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	kinds []string
}

func newGatedBroker() *gatedBroker {
	return &gatedBroker{entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *gatedBroker) Publish(_ context.Context, msg messages.Tagged) {
	if !msg.IsCloseSentinel() && msg.Envelope.Kind() == "source" {
		b.once.Do(func() {
			close(b.entered)
			<-b.release
		})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg.IsCloseSentinel() {
		b.kinds = append(b.kinds, "close")
		return
	}
	b.kinds = append(b.kinds, msg.Envelope.Kind())
}

func (b *gatedBroker) Kinds() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.kinds)
}

func TestPublisher_SharedFeatureWaitsForPickles(t *testing.T) {
	ctx := context.Background()
	b := newGatedBroker()
	conv := convert.New(ids.NewIncrementing(), nil, convert.WithLogger(quietLogger()))
	p := New(b, conv, WithLogger(quietLogger()))
	require.NoError(t, p.StartRun(ctx))

	first := make(chan error, 1)
	go func() {
		_, err := p.StartFeature(ctx, testutil.CalculatorDocument())
		first <- err
	}()
	<-b.entered

	// A second worker joins the feature while its Source is still in flight.
	second := make(chan error, 1)
	go func() {
		f, err := p.StartFeature(ctx, testutil.CalculatorDocument())
		if err == nil {
			_, _, err = f.Next(ctx)
		}
		second <- err
	}()

	select {
	case err := <-second:
		t.Fatalf("second worker started a scenario before the pickles were published (err=%v)", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(b.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	assert.Equal(t, []string{
		"meta", "testRunStarted",
		"source", "gherkinDocument", "pickle", "pickle", "pickle",
		"testCase", "testCaseStarted",
	}, b.Kinds())
}

func TestPublisher_SharedFeatureWaitHonoursContext(t *testing.T) {
	b := newGatedBroker()
	conv := convert.New(ids.NewIncrementing(), nil, convert.WithLogger(quietLogger()))
	p := New(b, conv, WithLogger(quietLogger()))
	require.NoError(t, p.StartRun(context.Background()))

	first := make(chan error, 1)
	go func() {
		_, err := p.StartFeature(context.Background(), testutil.CalculatorDocument())
		first <- err
	}()
	<-b.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	assert.ErrorIs(t, err, context.Canceled)

	close(b.release)
	require.NoError(t, <-first)
}

func TestPublisher_UUIDStyle(t *testing.T) {
	ctx := context.Background()
	sink := testutil.NewRecordingSink("rec")
	p := New(broker.New(quietLogger(), sink), convert.New(ids.NewUUID(), nil), WithLogger(quietLogger()))

	require.NoError(t, p.StartRun(ctx))
	f, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	require.NoError(t, err)
	sc, err := f.StartScenario(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, ids.StyleUUID, ids.StyleOf(p.TestRunStartedID()))
	assert.Equal(t, ids.StyleUUID, ids.StyleOf(sc.PickleID()))
	assert.Equal(t, ids.StyleUUID, ids.StyleOf(sc.TestCaseStartedID()))
}

func TestPublisher_Errors(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPublisher(t)

	_, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	assert.ErrorIs(t, err, ErrRunNotStarted)
	_, err = p.FinishRun(ctx)
	assert.ErrorIs(t, err, ErrRunNotStarted)

	require.NoError(t, p.StartRun(ctx))
	assert.Error(t, p.StartRun(ctx), "a run starts once")

	f, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	require.NoError(t, err)

	_, err = f.StartScenario(ctx, 7)
	assert.Error(t, err)

	sc, err := f.StartScenario(ctx, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, sc.FinishStep(ctx, StepResult{}), ErrNoStep)

	_, err = sc.StartStep(ctx)
	require.NoError(t, err)
	_, err = sc.StartStep(ctx)
	assert.ErrorIs(t, err, ErrStepInProgress)
	assert.ErrorIs(t, sc.Finish(ctx), ErrStepInProgress)
	require.NoError(t, sc.FinishStep(ctx, StepResult{Status: messages.StatusPassed}))

	for range sc.Steps() - 1 {
		_, err = sc.StartStep(ctx)
		require.NoError(t, err)
		require.NoError(t, sc.FinishStep(ctx, StepResult{Status: messages.StatusPassed}))
	}
	_, err = sc.StartStep(ctx)
	assert.ErrorIs(t, err, ErrNoMoreSteps)

	require.NoError(t, sc.Finish(ctx))
	assert.ErrorIs(t, sc.Finish(ctx), ErrScenarioFinished)
	assert.ErrorIs(t, sc.Attach(ctx, Attachment{Body: "x"}), ErrScenarioFinished)

	require.NoError(t, f.Finish(ctx))
	assert.ErrorIs(t, f.Finish(ctx), ErrFeatureFinished)
	_, err = f.StartScenario(ctx, 1)
	assert.ErrorIs(t, err, ErrFeatureFinished)

	_, err = p.FinishRun(ctx)
	require.NoError(t, err)
	_, err = p.StartFeature(ctx, testutil.CalculatorDocument())
	assert.ErrorIs(t, err, ErrRunFinished)
}

func TestScenario_AttachCorrelatesWithRunningStep(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPublisher(t)

	require.NoError(t, p.StartRun(ctx))
	f, err := p.StartFeature(ctx, testutil.CalculatorDocument())
	require.NoError(t, err)
	sc, err := f.StartScenario(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, sc.Attach(ctx, Attachment{Body: "before", MediaType: "text/plain"}))
	stepID, err := sc.StartStep(ctx)
	require.NoError(t, err)
	require.NoError(t, sc.Attach(ctx, Attachment{Body: "aGk=", Encoding: messages.EncodingBase64, MediaType: "text/plain", FileName: "hi.txt"}))
	require.NoError(t, sc.Attach(ctx, Attachment{URL: "shots/1.png", MediaType: "image/png"}))

	var embedded []*messages.Attachment
	var external []*messages.ExternalAttachment
	for _, m := range sink.Received() {
		switch {
		case m.Envelope == nil:
		case m.Envelope.Attachment != nil:
			embedded = append(embedded, m.Envelope.Attachment)
		case m.Envelope.ExternalAttachment != nil:
			external = append(external, m.Envelope.ExternalAttachment)
		}
	}

	require.Len(t, embedded, 2)
	assert.Empty(t, embedded[0].TestStepID, "attached between steps")
	assert.Equal(t, sc.TestCaseStartedID(), embedded[0].TestCaseStartedID)
	assert.Equal(t, stepID, embedded[1].TestStepID)
	assert.Equal(t, messages.EncodingBase64, embedded[1].ContentEncoding)
	assert.Equal(t, "hi.txt", embedded[1].FileName)
	require.NotNil(t, embedded[1].Timestamp)

	require.Len(t, external, 1)
	assert.Equal(t, "shots/1.png", external[0].URL)
	assert.Equal(t, stepID, external[0].TestStepID)
}

func count(kinds []string, kind string) int {
	n := 0
	for k := range slices.Values(kinds) {
		if k == kind {
			n++
		}
	}
	return n
}
