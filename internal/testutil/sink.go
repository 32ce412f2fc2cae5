package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/cukemsg/internal/messages"
)

// RecordingSink is an in-memory message sink that records everything it is
// given. Set Err or PanicWith to make Publish fail.
//
// Thread-safety: All methods are safe for concurrent use.
type RecordingSink struct {
	name string

	mu        sync.Mutex
	received  []messages.Tagged
	closed    int
	err       error
	panicWith any
}

// NewRecordingSink creates an enabled sink.
func NewRecordingSink(name string) *RecordingSink {
	return &RecordingSink{name: name}
}

func (s *RecordingSink) Name() string  { return s.name }
func (s *RecordingSink) Enabled() bool { return true }

// Publish records msg, or fails as configured. Failed deliveries are still
// counted as received.
func (s *RecordingSink) Publish(_ context.Context, msg messages.Tagged) error {
	s.mu.Lock()
	s.received = append(s.received, msg)
	err, p := s.err, s.panicWith
	s.mu.Unlock()
	if p != nil {
		panic(p)
	}
	return err
}

// Close records the call. It is idempotent.
func (s *RecordingSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// FailWith makes subsequent Publish calls return err.
func (s *RecordingSink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// PanicWith makes subsequent Publish calls panic with v.
func (s *RecordingSink) PanicWith(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panicWith = v
}

// Received returns a copy of every message published so far.
func (s *RecordingSink) Received() []messages.Tagged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]messages.Tagged(nil), s.received...)
}

// Kinds returns the envelope kinds received, with "close:<feature>" for
// close sentinels.
func (s *RecordingSink) Kinds() []string {
	var out []string
	for _, m := range s.Received() {
		if m.IsCloseSentinel() {
			out = append(out, "close:"+m.Feature)
			continue
		}
		out = append(out, m.Envelope.Kind())
	}
	return out
}

// Closed returns how many times Close was called.
func (s *RecordingSink) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ErrSinkFailed is a convenience error for FailWith.
var ErrSinkFailed = errors.New("sink failed")
