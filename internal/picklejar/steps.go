package picklejar

import (
	"iter"

	"github.com/roach88/cukemsg/internal/messages"
)

// StepSequence walks the steps of one pickle.
//
// Steps are only read when iterated; nothing is copied up front. The cursor
// starts before the first step: call Next to move onto it.
//
// A StepSequence is not safe for concurrent use. Each scenario owns its own.
type StepSequence struct {
	pickleID string
	steps    []messages.PickleStep
	pos      int
}

// PickleID returns the id of the pickle the steps belong to, or NoID.
func (s *StepSequence) PickleID() string {
	return s.pickleID
}

// Len returns the number of steps.
func (s *StepSequence) Len() int {
	return len(s.steps)
}

// All iterates over the steps with their index.
func (s *StepSequence) All() iter.Seq2[int, messages.PickleStep] {
	return func(yield func(int, messages.PickleStep) bool) {
		for i := range s.steps {
			if !yield(i, s.steps[i]) {
				return
			}
		}
	}
}

// Next moves onto the next step and reports whether there is one.
func (s *StepSequence) Next() bool {
	if s.pos+1 >= len(s.steps) {
		s.pos = len(s.steps)
		return false
	}
	s.pos++
	return true
}

// Current returns the step under the cursor.
func (s *StepSequence) Current() (messages.PickleStep, bool) {
	if s.pos < 0 || s.pos >= len(s.steps) {
		return messages.PickleStep{}, false
	}
	return s.steps[s.pos], true
}

// CurrentStepID returns the id of the step under the cursor, or NoID.
func (s *StepSequence) CurrentStepID() string {
	st, ok := s.Current()
	if !ok {
		return NoID
	}
	return st.ID
}
