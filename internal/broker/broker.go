// Package broker fans the envelope stream out to every registered sink.
//
// A failing sink never affects the others or the caller: errors and panics
// raised during delivery are logged and swallowed.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cukemsg/internal/messages"
)

// Sink receives envelopes from the broker.
//
// Publish may be called from many goroutines at once. Close is called once,
// after the last Publish.
type Sink interface {
	Name() string
	Enabled() bool
	Publish(ctx context.Context, msg messages.Tagged) error
	Close(ctx context.Context) error
}

// Broker delivers each published message to its sinks in registration order.
//
// Thread-safety: Publish is safe for concurrent use. The sink set is fixed at
// construction.
type Broker struct {
	sinks  []Sink
	logger *slog.Logger
}

// New creates a broker over the enabled sinks. Disabled and nil sinks are
// dropped. A nil logger selects slog.Default().
func New(logger *slog.Logger, sinks ...Sink) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{logger: logger}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if !s.Enabled() {
			logger.Debug("sink disabled, not registered", "sink", s.Name())
			continue
		}
		b.sinks = append(b.sinks, s)
	}
	return b
}

// Enabled reports whether at least one sink is registered.
func (b *Broker) Enabled() bool {
	return len(b.sinks) > 0
}

// Names returns the names of the registered sinks in registration order.
func (b *Broker) Names() []string {
	names := make([]string, len(b.sinks))
	for i, s := range b.sinks {
		names[i] = s.Name()
	}
	return names
}

// Publish delivers msg to every sink. It never fails: sink errors and panics
// are logged, and delivery continues with the next sink.
func (b *Broker) Publish(ctx context.Context, msg messages.Tagged) {
	for _, s := range b.sinks {
		if err := deliver(ctx, s, msg); err != nil {
			b.logger.Error("sink publish failed",
				"sink", s.Name(),
				"feature", msg.Feature,
				"kind", kindOf(msg),
				"error", err,
			)
		}
	}
}

// deliver is the per-sink error boundary.
func deliver(ctx context.Context, s Sink, msg messages.Tagged) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return s.Publish(ctx, msg)
}

// Close closes every sink concurrently and waits for all of them, even when
// some fail. The returned error joins every sink's error.
func (b *Broker) Close(ctx context.Context) error {
	errs := make([]error, len(b.sinks))
	var g errgroup.Group
	for i, s := range b.sinks {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("close %s: sink panicked: %v", s.Name(), r)
				}
			}()
			if err := s.Close(ctx); err != nil {
				errs[i] = fmt.Errorf("close %s: %w", s.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
	err := errors.Join(errs...)
	if err != nil {
		b.logger.Error("sink shutdown failed", "error", err)
	}
	return err
}

func kindOf(msg messages.Tagged) string {
	if msg.IsCloseSentinel() {
		return "close"
	}
	return msg.Envelope.Kind()
}
