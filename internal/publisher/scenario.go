package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/roach88/cukemsg/internal/messages"
	"github.com/roach88/cukemsg/internal/picklejar"
)

var (
	// ErrNoMoreSteps is returned by StartStep when every step has run.
	ErrNoMoreSteps = errors.New("no more steps")
	// ErrStepInProgress is returned when a step is started or the
	// scenario finished while another step is still running.
	ErrStepInProgress = errors.New("step in progress")
	// ErrNoStep is returned by FinishStep when no step is running.
	ErrNoStep = errors.New("no step in progress")
	// ErrScenarioFinished is returned when reporting on a finished scenario.
	ErrScenarioFinished = errors.New("scenario already finished")
)

// StepResult is the outcome of one step.
type StepResult struct {
	Status    messages.TestStepResultStatus
	Duration  time.Duration
	Message   string
	Exception *messages.Exception
}

// Attachment is content produced while a scenario runs. A URL without a
// Body is reported as an ExternalAttachment.
type Attachment struct {
	Body      string
	Encoding  messages.AttachmentContentEncoding
	MediaType string
	FileName  string
	URL       string
}

// Scenario tracks one attempt at running a pickle.
type Scenario struct {
	f          *Feature
	pickle     messages.Pickle
	steps      *picklejar.StepSequence
	attempt    int
	testCaseID string
	startedID  string
	testSteps  []messages.TestStep

	mu       sync.Mutex
	index    int
	inStep   bool
	failed   bool
	finished bool
}

// PickleID returns the id of the pickle being run.
func (s *Scenario) PickleID() string { return s.pickle.ID }

// Name returns the pickle's name.
func (s *Scenario) Name() string { return s.pickle.Name }

// TestCaseStartedID returns the id of this attempt.
func (s *Scenario) TestCaseStartedID() string { return s.startedID }

// Attempt returns the zero-based attempt number.
func (s *Scenario) Attempt() int { return s.attempt }

// Steps returns the number of steps in the pickle.
func (s *Scenario) Steps() int { return s.steps.Len() }

// StartStep emits TestStepStarted for the next step and returns the test
// step id.
func (s *Scenario) StartStep(ctx context.Context) (string, error) {
	s.mu.Lock()
	switch {
	case s.finished:
		s.mu.Unlock()
		return "", ErrScenarioFinished
	case s.inStep:
		s.mu.Unlock()
		return "", ErrStepInProgress
	}
	if !s.steps.Next() {
		s.mu.Unlock()
		return "", ErrNoMoreSteps
	}
	s.index++
	s.inStep = true
	stepID := s.testSteps[s.index].ID
	s.mu.Unlock()

	s.f.p.emit(ctx, s.f.key, &messages.TestStepStarted{
		TestCaseStartedID: s.startedID,
		TestStepID:        stepID,
		Timestamp:         messages.TimestampOf(s.f.p.now()),
	})
	return stepID, nil
}

// FinishStep emits TestStepFinished for the running step.
func (s *Scenario) FinishStep(ctx context.Context, result StepResult) error {
	s.mu.Lock()
	if !s.inStep {
		s.mu.Unlock()
		return ErrNoStep
	}
	s.inStep = false
	if !passing(result.Status) {
		s.failed = true
	}
	stepID := s.testSteps[s.index].ID
	s.mu.Unlock()

	s.f.p.emit(ctx, s.f.key, &messages.TestStepFinished{
		TestCaseStartedID: s.startedID,
		TestStepID:        stepID,
		TestStepResult: messages.TestStepResult{
			Duration:  messages.DurationOf(result.Duration),
			Message:   result.Message,
			Status:    result.Status,
			Exception: result.Exception,
		},
		Timestamp: messages.TimestampOf(s.f.p.now()),
	})
	return nil
}

// Attach emits an Attachment or ExternalAttachment. It is correlated with
// the running step, or with the scenario alone between steps.
func (s *Scenario) Attach(ctx context.Context, a Attachment) error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return ErrScenarioFinished
	}
	var stepID string
	if s.inStep {
		stepID = s.testSteps[s.index].ID
	}
	s.mu.Unlock()

	ts := messages.TimestampOf(s.f.p.now())
	if a.URL != "" && a.Body == "" {
		s.f.p.emit(ctx, s.f.key, &messages.ExternalAttachment{
			URL:               a.URL,
			MediaType:         a.MediaType,
			TestCaseStartedID: s.startedID,
			TestStepID:        stepID,
			Timestamp:         &ts,
		})
		return nil
	}
	s.f.p.emit(ctx, s.f.key, &messages.Attachment{
		Body:              a.Body,
		ContentEncoding:   a.Encoding,
		FileName:          a.FileName,
		MediaType:         a.MediaType,
		TestCaseStartedID: s.startedID,
		TestStepID:        stepID,
		URL:               a.URL,
		Timestamp:         &ts,
	})
	return nil
}

// Finish emits TestCaseFinished. Steps that were never started are not
// reported.
func (s *Scenario) Finish(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.finished:
		s.mu.Unlock()
		return ErrScenarioFinished
	case s.inStep:
		s.mu.Unlock()
		return ErrStepInProgress
	}
	s.finished = true
	s.mu.Unlock()

	s.f.p.emit(ctx, s.f.key, &messages.TestCaseFinished{
		TestCaseStartedID: s.startedID,
		Timestamp:         messages.TimestampOf(s.f.p.now()),
	})
	return nil
}

// Passed reports whether the scenario finished with only passed or
// skipped steps.
func (s *Scenario) Passed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished && !s.failed
}

func passing(st messages.TestStepResultStatus) bool {
	return st == messages.StatusPassed || st == messages.StatusSkipped
}
