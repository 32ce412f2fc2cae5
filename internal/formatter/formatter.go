// Package formatter turns the envelope stream into report files.
//
// Each Formatter owns an unbounded queue and a single consumer goroutine.
// Publish only enqueues, so a slow or broken output never stalls the run.
// The consumer opens its Target on the first message, writes every
// envelope in order and closes the Target on shutdown, whether the queue
// drained or the run was cancelled. File targets flush after every
// envelope, so a crashed run keeps everything written before it.
package formatter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/cukemsg/internal/messages"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("formatter closed")

// Target is the output a Formatter writes to.
// Its methods are only ever called from the Formatter's consumer goroutine.
type Target interface {
	// Open acquires the output. Called once, before the first Write.
	Open(ctx context.Context) error
	// Write emits one message. Close sentinels are passed through too.
	Write(ctx context.Context, msg messages.Tagged) error
	// Close flushes and releases the output. Only called after a
	// successful Open.
	Close() error
}

// Formatter is a queued, asynchronously written message sink.
type Formatter struct {
	name        string
	target      Target
	logger      *slog.Logger
	attachments AttachmentHandling
	storagePath string

	enabled atomic.Bool
	queue   *queue
	done    chan struct{}

	launchOnce sync.Once
	cancel     context.CancelFunc

	// Owned by the consumer goroutine.
	opened bool
	failed bool
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Formatter) { f.logger = l }
}

// WithAttachments sets how attachments are emitted. storagePath is where
// External attachments live.
func WithAttachments(h AttachmentHandling, storagePath string) Option {
	return func(f *Formatter) {
		f.attachments = h
		f.storagePath = storagePath
	}
}

// New creates an enabled formatter writing to target. Call Launch to start
// consuming.
func New(name string, target Target, opts ...Option) *Formatter {
	f := &Formatter{
		name:   name,
		target: target,
		logger: slog.Default(),
		queue:  newQueue(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("formatter", name)
	f.enabled.Store(true)
	return f
}

// Name returns the formatter's configured name.
func (f *Formatter) Name() string { return f.name }

// Enabled reports whether the formatter still accepts output. It turns
// false once the Target fails to open.
func (f *Formatter) Enabled() bool { return f.enabled.Load() }

// Done is closed once the consumer has stopped and the Target is closed.
func (f *Formatter) Done() <-chan struct{} { return f.done }

// Launch starts the consumer goroutine. Later calls are no-ops.
// Cancelling ctx stops the consumer without draining the queue.
func (f *Formatter) Launch(ctx context.Context) {
	f.launchOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		f.cancel = cancel
		go f.run(runCtx)
	})
}

// Publish enqueues msg without blocking. Returns ErrClosed after Close, or
// once the consumer has stopped because its Launch context ended.
func (f *Formatter) Publish(_ context.Context, msg messages.Tagged) error {
	if !f.queue.Enqueue(msg) {
		return ErrClosed
	}
	return nil
}

// Close stops accepting messages and waits for the consumer to drain the
// queue and close the Target. If ctx ends first the consumer is cancelled,
// the Target is still closed, and ctx.Err() is returned.
//
// A formatter that was never launched is launched here so queued messages
// are still written.
func (f *Formatter) Close(ctx context.Context) error {
	f.queue.Close()
	f.Launch(context.Background())

	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		f.cancel()
		<-f.done
		return ctx.Err()
	}
}

func (f *Formatter) run(ctx context.Context) {
	defer close(f.done)
	// Nothing drains the queue once the consumer is gone.
	defer f.queue.Close()
	defer f.finish()

	for {
		if ctx.Err() != nil {
			if n := f.queue.Len(); n > 0 {
				f.logger.Warn("formatter cancelled, discarding queued messages", "dropped", n)
			}
			return
		}

		if msg, ok := f.queue.TryDequeue(); ok {
			f.handle(ctx, msg)
			continue
		}

		if f.queue.Drained() {
			return
		}

		select {
		case <-ctx.Done():
		case <-f.queue.Wait():
		}
	}
}

func (f *Formatter) handle(ctx context.Context, msg messages.Tagged) {
	if f.failed {
		return
	}

	if !f.opened {
		if err := f.target.Open(ctx); err != nil {
			f.logger.Error("formatter could not open its output, disabling", "error", err)
			f.failed = true
			f.enabled.Store(false)
			return
		}
		f.opened = true
	}

	if err := f.target.Write(ctx, f.transform(msg)); err != nil {
		f.logger.Error("formatter write failed, discarding remaining messages", "error", err)
		f.failed = true
	}
}

func (f *Formatter) finish() {
	if !f.opened {
		return
	}
	if err := f.target.Close(); err != nil {
		f.logger.Error("formatter close failed", "error", err)
	}
}
