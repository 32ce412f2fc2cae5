package broker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/cukemsg/internal/messages"
	"github.com/roach88/cukemsg/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type disabledSink struct{ *testutil.RecordingSink }

func (disabledSink) Enabled() bool { return false }

type failingCloser struct {
	*testutil.RecordingSink
	err error
}

func (f failingCloser) Close(ctx context.Context) error {
	_ = f.RecordingSink.Close(ctx)
	return f.err
}

func runStarted() messages.Tagged {
	return messages.Tagged{Envelope: messages.NewEnvelope(&messages.TestRunStarted{ID: "0"})}
}

func TestBroker_DeliversToEverySink(t *testing.T) {
	a := testutil.NewRecordingSink("A")
	b := testutil.NewRecordingSink("B")
	br := New(quietLogger(), a, b)

	msg := runStarted()
	br.Publish(context.Background(), msg)

	require.Len(t, a.Received(), 1)
	require.Len(t, b.Received(), 1)
	assert.Same(t, msg.Envelope, a.Received()[0].Envelope)
	assert.Same(t, msg.Envelope, b.Received()[0].Envelope)
}

func TestBroker_FailingSinkDoesNotStopOthers(t *testing.T) {
	a := testutil.NewRecordingSink("A")
	b := testutil.NewRecordingSink("B")
	br := New(quietLogger(), a, b)
	ctx := context.Background()

	br.Publish(ctx, runStarted())

	a.FailWith(testutil.ErrSinkFailed)
	assert.NotPanics(t, func() { br.Publish(ctx, runStarted()) })
	assert.Len(t, b.Received(), 2)

	a.PanicWith("boom")
	assert.NotPanics(t, func() { br.Publish(ctx, runStarted()) })
	assert.Len(t, b.Received(), 3)
	assert.Len(t, a.Received(), 3)
}

func TestBroker_RegistrationOrder(t *testing.T) {
	var order []string
	first := &orderSink{name: "first", order: &order}
	second := &orderSink{name: "second", order: &order}
	br := New(quietLogger(), first, second)

	br.Publish(context.Background(), runStarted())

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, []string{"first", "second"}, br.Names())
}

type orderSink struct {
	name  string
	order *[]string
}

func (s *orderSink) Name() string  { return s.name }
func (s *orderSink) Enabled() bool { return true }
func (s *orderSink) Publish(context.Context, messages.Tagged) error {
	*s.order = append(*s.order, s.name)
	return nil
}
func (s *orderSink) Close(context.Context) error { return nil }

func TestBroker_SkipsDisabledSinks(t *testing.T) {
	off := disabledSink{testutil.NewRecordingSink("off")}
	on := testutil.NewRecordingSink("on")

	br := New(quietLogger(), off, nil, on)
	assert.True(t, br.Enabled())
	assert.Equal(t, []string{"on"}, br.Names())

	br.Publish(context.Background(), runStarted())
	assert.Empty(t, off.Received())

	assert.False(t, New(quietLogger(), off).Enabled())
	assert.False(t, New(nil).Enabled())
}

func TestBroker_CloseClosesAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("disk full")
	a := failingCloser{testutil.NewRecordingSink("A"), errA}
	b := testutil.NewRecordingSink("B")
	br := New(quietLogger(), a, b)

	err := br.Close(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.Contains(t, err.Error(), "close A")
	assert.Equal(t, 1, a.Closed())
	assert.Equal(t, 1, b.Closed())
}

func TestBroker_CloseWithoutSinks(t *testing.T) {
	assert.NoError(t, New(quietLogger()).Close(context.Background()))
}
