package formatter

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cukemsg/internal/messages"
)

func tagged(feature, uri string) messages.Tagged {
	return messages.Tagged{
		Feature:  feature,
		Envelope: messages.NewEnvelope(&messages.Source{URI: uri, Data: uri, MediaType: messages.MediaTypeGherkinPlain}),
	}
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	q := newQueue()

	ok := q.Enqueue(tagged("F", "a.feature"))
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, "F", got.Feature)
	assert.Equal(t, "a.feature", got.Envelope.Source.URI)
}

func TestQueue_FIFO(t *testing.T) {
	q := newQueue()

	for _, uri := range []string{"A", "B", "C"} {
		q.Enqueue(tagged("F", uri))
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.Envelope.Source.URI)
	}
}

func TestQueue_TryDequeue_Empty(t *testing.T) {
	q := newQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestQueue_Wait_SignalsOnEnqueue(t *testing.T) {
	q := newQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(tagged("F", "late"))
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("wait was not signalled")
	}
	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "late", got.Envelope.Source.URI)
}

func TestQueue_Close_WakesWaiter(t *testing.T) {
	q := newQueue()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("wait did not unblock after close")
	}
}

func TestQueue_Enqueue_AfterClose(t *testing.T) {
	q := newQueue()
	q.Close()
	q.Close()

	ok := q.Enqueue(tagged("F", "after-close"))
	assert.False(t, ok, "enqueue after close should return false")
}

func TestQueue_Drained(t *testing.T) {
	q := newQueue()
	q.Enqueue(tagged("F", "a"))
	assert.False(t, q.Drained(), "open queue is never drained")

	q.Close()
	assert.False(t, q.Drained(), "closed queue with items is not drained")

	_, ok := q.TryDequeue()
	require.True(t, ok, "items enqueued before close stay available")
	assert.True(t, q.Drained())
}

func TestQueue_Len(t *testing.T) {
	q := newQueue()

	assert.Equal(t, 0, q.Len())
	q.Enqueue(tagged("F", "1"))
	q.Enqueue(tagged("F", "2"))
	assert.Equal(t, 2, q.Len())
	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ThreadSafe(t *testing.T) {
	q := newQueue()

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				q.Enqueue(tagged(fmt.Sprintf("F%d", p), fmt.Sprint(i)))
			}
		}()
	}
	wg.Wait()

	// FIFO holds per producer.
	next := map[string]int{}
	for {
		msg, ok := q.TryDequeue()
		if !ok {
			break
		}
		assert.Equal(t, fmt.Sprint(next[msg.Feature]), msg.Envelope.Source.URI)
		next[msg.Feature]++
	}
	assert.Len(t, next, producers)
	for _, n := range next {
		assert.Equal(t, perProducer, n)
	}
}
