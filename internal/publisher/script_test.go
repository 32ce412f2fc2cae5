package publisher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cukemsg/internal/messages"
)

func TestLoadScriptFile(t *testing.T) {
	s, err := LoadScriptFile("testdata/run.yaml")
	require.NoError(t, err)

	require.Len(t, s.Features, 1)
	f := s.Features[0]
	assert.Equal(t, "../../gherkin/testdata/calculator.yaml", f.Document)
	require.Len(t, f.Scenarios, 2)
	assert.Nil(t, f.Scenarios[0].Pickle)
	require.NotNil(t, f.Scenarios[1].Pickle)
	assert.Equal(t, 1, *f.Scenarios[1].Pickle)
	assert.Equal(t, 3*time.Millisecond, f.Scenarios[0].Steps[0].Duration)
	assert.True(t, f.Scenarios[0].Steps[1].Attachments[0].Base64)
}

func TestLoadScript_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unknown field", "features: []\nextra: 1\n"},
		{"missing document", "features:\n  - scenarios: []\n"},
		{"bad status", "features:\n  - document: a.yaml\n    scenarios:\n      - steps:\n          - status: GREEN\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScript(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestPlay_ScriptedOutcomes(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPublisher(t)

	s, err := LoadScriptFile("testdata/run.yaml")
	require.NoError(t, err)

	success, err := Play(ctx, p, s, "testdata")
	require.NoError(t, err)
	assert.False(t, success)

	var statuses []messages.TestStepResultStatus
	var attachments []*messages.Attachment
	for _, m := range sink.Received() {
		if m.Envelope == nil {
			continue
		}
		if tsf := m.Envelope.TestStepFinished; tsf != nil {
			statuses = append(statuses, tsf.TestStepResult.Status)
		}
		if a := m.Envelope.Attachment; a != nil {
			attachments = append(attachments, a)
		}
	}

	assert.Equal(t, []messages.TestStepResultStatus{
		// scenario 0: passed, failed, then skipped
		messages.StatusPassed, messages.StatusFailed, messages.StatusSkipped,
		// pickle 1: defaults pass
		messages.StatusPassed, messages.StatusPassed, messages.StatusPassed,
	}, statuses)

	require.Len(t, attachments, 1)
	assert.Equal(t, messages.EncodingBase64, attachments[0].ContentEncoding)
	assert.Equal(t, "hello.txt", attachments[0].FileName)
	assert.NotEmpty(t, attachments[0].TestStepID)

	kinds := sink.Kinds()
	assert.Equal(t, "close:Calculator", kinds[len(kinds)-2])
	assert.Equal(t, "testRunFinished", kinds[len(kinds)-1])
}

func TestPlay_DefaultRunsEveryPickle(t *testing.T) {
	ctx := context.Background()
	p, sink := newTestPublisher(t)

	s := &Script{Features: []ScriptFeature{{Document: "../../gherkin/testdata/calculator.yaml"}}}
	success, err := Play(ctx, p, s, "testdata")
	require.NoError(t, err)
	assert.True(t, success)

	kinds := sink.Kinds()
	assert.Equal(t, 2, count(kinds, "pickle"))
	assert.Equal(t, 2, count(kinds, "testCaseStarted"))
	assert.Equal(t, 2, count(kinds, "testCaseFinished"))
}

func TestPlay_MissingDocument(t *testing.T) {
	p, _ := newTestPublisher(t)
	s := &Script{Features: []ScriptFeature{{Document: "missing.yaml"}}}

	_, err := Play(context.Background(), p, s, t.TempDir())
	assert.Error(t, err)
}

func TestPlay_CancelledContext(t *testing.T) {
	p, _ := newTestPublisher(t)
	s := &Script{Features: []ScriptFeature{{Document: "../../gherkin/testdata/calculator.yaml"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Play(ctx, p, s, "testdata")
	assert.ErrorIs(t, err, context.Canceled)
}
