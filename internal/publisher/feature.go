package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/cukemsg/internal/messages"
	"github.com/roach88/cukemsg/internal/picklejar"
)

// ErrFeatureFinished is returned when reporting on a finished feature.
var ErrFeatureFinished = errors.New("feature already finished")

// Feature tracks the scenarios of one feature.
type Feature struct {
	p   *Publisher
	key string
	jar *picklejar.Jar

	// Closed once Source, GherkinDocument and Pickles are published.
	ready chan struct{}

	mu        sync.Mutex
	attempts  map[string]int    // pickle id -> attempts started
	cases     map[string]string // pickle id -> test case id
	scenarios []*Scenario
	finished  bool
	success   bool
}

// Key returns the feature key its envelopes are tagged with.
func (f *Feature) Key() string { return f.key }

// Pickles returns the number of pickles in the feature.
func (f *Feature) Pickles() int { return f.jar.Len() }

// Next starts the scenario for the pickle under the jar's cursor and
// advances the cursor. Returns false once every pickle has been started.
func (f *Feature) Next(ctx context.Context) (*Scenario, bool, error) {
	f.mu.Lock()
	if f.jar.CurrentPickleID() == picklejar.NoID {
		f.mu.Unlock()
		return nil, false, nil
	}
	index := f.jar.Position()
	f.jar.Advance()
	f.mu.Unlock()

	s, err := f.StartScenario(ctx, index)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// StartScenario emits TestCase (first attempt only) and TestCaseStarted for
// the pickle at index. Starting the same pickle again reports a retry with
// the next attempt number.
func (f *Feature) StartScenario(ctx context.Context, index int) (*Scenario, error) {
	pickle, ok := f.jar.PickleAt(index)
	if !ok {
		return nil, fmt.Errorf("feature %q: no pickle at index %d (have %d)", f.key, index, f.jar.Len())
	}
	gen := f.p.gen

	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return nil, ErrFeatureFinished
	}
	attempt := f.attempts[pickle.ID]
	f.attempts[pickle.ID] = attempt + 1

	s := &Scenario{
		f:       f,
		pickle:  pickle,
		steps:   f.jar.StepSequenceFor(index),
		attempt: attempt,
		index:   -1,
	}

	var testCase *messages.TestCase
	if id, ok := f.cases[pickle.ID]; ok {
		s.testCaseID = id
		s.testSteps = f.testStepsFor(pickle.ID)
	} else {
		testCase = &messages.TestCase{
			ID:               gen.NewID(),
			PickleID:         pickle.ID,
			TestSteps:        make([]messages.TestStep, 0, len(pickle.Steps)),
			TestRunStartedID: f.p.TestRunStartedID(),
		}
		for _, step := range pickle.Steps {
			testCase.TestSteps = append(testCase.TestSteps, messages.TestStep{
				ID:           gen.NewID(),
				PickleStepID: step.ID,
			})
		}
		f.cases[pickle.ID] = testCase.ID
		s.testCaseID = testCase.ID
		s.testSteps = testCase.TestSteps
	}
	s.startedID = gen.NewID()
	f.scenarios = append(f.scenarios, s)
	f.mu.Unlock()

	if testCase != nil {
		f.p.emit(ctx, f.key, testCase)
	}
	f.p.emit(ctx, f.key, &messages.TestCaseStarted{
		Attempt:    int64(attempt),
		ID:         s.startedID,
		TestCaseID: s.testCaseID,
		Timestamp:  messages.TimestampOf(f.p.now()),
	})
	return s, nil
}

// testStepsFor returns the test steps of an earlier attempt.
// Must be called with f.mu held.
func (f *Feature) testStepsFor(pickleID string) []messages.TestStep {
	for _, s := range f.scenarios {
		if s.pickle.ID == pickleID {
			return s.testSteps
		}
	}
	return nil
}

// Finish emits the feature's close sentinel. The feature succeeded if every
// pickle's last attempt finished and passed.
func (f *Feature) Finish(ctx context.Context) error {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return ErrFeatureFinished
	}
	f.finished = true

	last := make(map[string]*Scenario)
	for _, s := range f.scenarios {
		last[s.pickle.ID] = s
	}
	success := true
	for _, s := range last {
		if !s.Passed() {
			success = false
		}
	}
	f.success = success
	f.mu.Unlock()

	f.p.broker.Publish(ctx, messages.CloseFeature(f.key))
	f.p.logger.Debug("feature finished", "feature", f.key, "success", success)
	return nil
}

// Success reports whether the feature finished and all its scenarios passed.
func (f *Feature) Success() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished && f.success
}
