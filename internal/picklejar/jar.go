// Package picklejar tracks which pickle of a feature is executing, so live
// execution events can be correlated with the pickle and step they belong to.
package picklejar

import (
	"fmt"
	"iter"
	"sync"

	"github.com/roach88/cukemsg/internal/messages"
)

// NoID is returned by CurrentPickleID when there is no current pickle.
const NoID = ""

// Jar is a read cursor over one feature's pickles.
//
// The position starts at zero and only moves forward. It is advanced once per
// scenario start, so it never legitimately passes the last pickle.
//
// Thread-safety: All methods are safe for concurrent use.
type Jar struct {
	pickles []messages.Pickle

	mu  sync.Mutex
	pos int
}

// New creates a jar over pickles. The slice is copied.
func New(pickles []messages.Pickle) *Jar {
	return &Jar{pickles: append([]messages.Pickle(nil), pickles...)}
}

// HasPickles reports whether the jar holds any pickle.
func (j *Jar) HasPickles() bool {
	return len(j.pickles) > 0
}

// Len returns the number of pickles.
func (j *Jar) Len() int {
	return len(j.pickles)
}

// Position returns the zero-based index of the current pickle.
func (j *Jar) Position() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pos
}

// CurrentPickleID returns the id of the pickle at the current position, or
// NoID when the jar is empty or exhausted.
func (j *Jar) CurrentPickleID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.pos >= len(j.pickles) {
		return NoID
	}
	return j.pickles[j.pos].ID
}

// CurrentPickle returns the pickle at the current position.
func (j *Jar) CurrentPickle() (messages.Pickle, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.pos >= len(j.pickles) {
		return messages.Pickle{}, false
	}
	return j.pickles[j.pos], true
}

// Advance moves to the next pickle and returns the new position.
//
// Panics when the cursor is already past the last pickle. Callers advance
// once per scenario start and there are never more starts than pickles.
func (j *Jar) Advance() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.pos >= len(j.pickles) {
		panic(fmt.Sprintf("picklejar: advance past end (position %d of %d)", j.pos, len(j.pickles)))
	}
	j.pos++
	return j.pos
}

// PickleAt returns the pickle at an absolute index.
func (j *Jar) PickleAt(index int) (messages.Pickle, bool) {
	if index < 0 || index >= len(j.pickles) {
		return messages.Pickle{}, false
	}
	return j.pickles[index], true
}

// StepSequenceFor returns a step cursor for the pickle at an absolute index,
// independent of the jar's current position. An index outside the jar yields
// an empty sequence.
func (j *Jar) StepSequenceFor(index int) *StepSequence {
	p, ok := j.PickleAt(index)
	if !ok {
		return &StepSequence{pos: -1}
	}
	return &StepSequence{pickleID: p.ID, steps: p.Steps, pos: -1}
}

// All iterates over every pickle with its index.
func (j *Jar) All() iter.Seq2[int, messages.Pickle] {
	return func(yield func(int, messages.Pickle) bool) {
		for i, p := range j.pickles {
			if !yield(i, p) {
				return
			}
		}
	}
}
