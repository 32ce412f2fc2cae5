package formatter

import (
	"sync"

	"github.com/roach88/cukemsg/internal/messages"
)

// queue is a thread-safe FIFO of tagged envelopes.
//
// The queue is unbounded so Publish never blocks the test run, however far
// behind the consumer falls.
//
// Any goroutine may enqueue; only the formatter's consumer dequeues.
// Signalling goes through a channel so the consumer can wait on it
// together with its context.
type queue struct {
	mu     sync.Mutex
	items  []messages.Tagged
	closed bool
	signal chan struct{} // Signals item availability (buffered, size 1)
}

func newQueue() *queue {
	return &queue{
		items:  make([]messages.Tagged, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds msg to the back of the queue.
// Returns false if the queue is closed.
func (q *queue) Enqueue(msg messages.Tagged) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, msg)

	// Non-blocking: the size-1 buffer coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front item without blocking.
// Returns false if the queue is empty.
func (q *queue) TryDequeue() (messages.Tagged, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return messages.Tagged{}, false
	}

	msg := q.items[0]

	// Drop the reference so delivered envelopes can be collected.
	q.items[0] = messages.Tagged{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return msg, true
}

// Wait returns a channel that signals when items may be available.
// The channel is closed once the queue is closed.
//
//	select {
//	case <-ctx.Done():
//	    return
//	case <-q.Wait():
//	    // TryDequeue
//	}
func (q *queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drained reports whether the queue is closed and empty. Both are checked
// under one lock so a final Enqueue racing with Close is never lost.
func (q *queue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}

// Close signals that no more items will be enqueued.
// Wakes any waiter by closing the signal channel.
func (q *queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
