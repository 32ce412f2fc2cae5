package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cukemsg/internal/messages"
)

func TestDeterministicClock_Advances(t *testing.T) {
	c := NewDeterministicClock()

	assert.Equal(t, Epoch, c.Now())
	assert.Equal(t, Epoch.Add(time.Second), c.Now())

	c.Reset()
	assert.Equal(t, Epoch, c.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	c := NewDeterministicClockStep(time.Millisecond)

	var wg sync.WaitGroup
	seen := make(chan time.Time, 100)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				seen <- c.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[time.Time]bool{}
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, 100)
}

func TestListGenerator(t *testing.T) {
	g := NewListGenerator("a", "b")

	assert.Equal(t, "a", g.NewID())
	assert.Equal(t, 1, g.Remaining())
	assert.Equal(t, "b", g.NewID())
	assert.Panics(t, func() { g.NewID() })
}

func TestRecordingSink(t *testing.T) {
	s := NewRecordingSink("rec")
	ctx := context.Background()
	env := messages.NewEnvelope(&messages.TestRunStarted{})

	require.NoError(t, s.Publish(ctx, messages.Tagged{Envelope: env}))
	require.NoError(t, s.Publish(ctx, messages.CloseFeature("F")))
	assert.Equal(t, []string{"testRunStarted", "close:F"}, s.Kinds())

	s.FailWith(ErrSinkFailed)
	assert.ErrorIs(t, s.Publish(ctx, messages.Tagged{Envelope: env}), ErrSinkFailed)
	assert.Len(t, s.Received(), 3)

	s.PanicWith("boom")
	assert.PanicsWithValue(t, "boom", func() { _ = s.Publish(ctx, messages.Tagged{Envelope: env}) })

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 1, s.Closed())
}

func TestCalculatorDocument_IsFresh(t *testing.T) {
	a := CalculatorDocument()
	b := CalculatorDocument()
	a.Feature.Name = "changed"
	assert.Equal(t, "Calculator", b.Feature.Name)
}
