package picklejar

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cukemsg/internal/messages"
)

func threePickles() []messages.Pickle {
	return []messages.Pickle{
		{ID: "p0", Steps: []messages.PickleStep{{ID: "s0"}, {ID: "s1"}}},
		{ID: "p1", Steps: []messages.PickleStep{{ID: "s2"}}},
		{ID: "p2", Steps: []messages.PickleStep{}},
	}
}

func TestJar_Empty(t *testing.T) {
	j := New(nil)

	assert.False(t, j.HasPickles())
	assert.Equal(t, NoID, j.CurrentPickleID())
	assert.Equal(t, 0, j.Position())
	assert.Panics(t, func() { j.Advance() })
}

func TestJar_AdvanceWalksPickles(t *testing.T) {
	j := New(threePickles())
	require.True(t, j.HasPickles())

	assert.Equal(t, "p0", j.CurrentPickleID())
	assert.Equal(t, 1, j.Advance())
	assert.Equal(t, "p1", j.CurrentPickleID())
	j.Advance()
	p, ok := j.CurrentPickle()
	require.True(t, ok)
	assert.Equal(t, "p2", p.ID)

	assert.Equal(t, 3, j.Advance())
	assert.Equal(t, NoID, j.CurrentPickleID(), "exhausted jar has no current pickle")
	_, ok = j.CurrentPickle()
	assert.False(t, ok)
	assert.Panics(t, func() { j.Advance() })
}

func TestJar_CopiesInput(t *testing.T) {
	in := threePickles()
	j := New(in)
	in[0].ID = "mutated"

	assert.Equal(t, "p0", j.CurrentPickleID())
}

func TestJar_ConcurrentAdvance(t *testing.T) {
	pickles := make([]messages.Pickle, 100)
	j := New(pickles)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.Advance()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, j.Position())
}

func TestJar_StepSequenceForIsIndependentOfCursor(t *testing.T) {
	j := New(threePickles())
	j.Advance()
	j.Advance()

	seq := j.StepSequenceFor(0)
	assert.Equal(t, "p0", seq.PickleID())
	assert.Equal(t, 2, seq.Len())
	assert.Equal(t, NoID, seq.CurrentStepID(), "cursor starts before the first step")

	require.True(t, seq.Next())
	assert.Equal(t, "s0", seq.CurrentStepID())
	require.True(t, seq.Next())
	assert.Equal(t, "s1", seq.CurrentStepID())
	assert.False(t, seq.Next())
	assert.Equal(t, NoID, seq.CurrentStepID())
	assert.False(t, seq.Next())

	assert.Equal(t, 2, j.Position())
}

func TestJar_StepSequenceForOutOfRange(t *testing.T) {
	j := New(threePickles())

	seq := j.StepSequenceFor(7)
	assert.Equal(t, NoID, seq.PickleID())
	assert.Equal(t, 0, seq.Len())
	assert.False(t, seq.Next())

	assert.Equal(t, 0, j.StepSequenceFor(-1).Len())
}

func TestStepSequence_All(t *testing.T) {
	j := New(threePickles())

	var got []string
	for _, st := range j.StepSequenceFor(0).All() {
		got = append(got, st.ID)
	}
	assert.Equal(t, []string{"s0", "s1"}, got)

	for range j.StepSequenceFor(2).All() {
		t.Fatal("pickle p2 has no steps")
	}
}

func TestJar_All(t *testing.T) {
	j := New(threePickles())

	var got []string
	for i, p := range j.All() {
		got = append(got, p.ID)
		if i == 1 {
			break
		}
	}
	assert.Equal(t, []string{"p0", "p1"}, got)
}
