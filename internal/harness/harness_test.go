package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/cukemsg/internal/messages"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/calculator.yaml")
	require.NoError(t, err)

	assert.Equal(t, "calculator", s.Name)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "../../../publisher/testdata/run.yaml"), s.Script)
	assert.Len(t, s.Assertions, 7)
	require.NotNil(t, s.Assertions[5].Success)
	assert.False(t, *s.Assertions[5].Success)
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "script.yaml"), []byte("features: []\n"), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", "name: x\ndescription: d\nscript: script.yaml\nassertion: []\n", "failed to parse YAML"},
		{"missing name", "description: d\nscript: script.yaml\nassertions: [{type: references_resolve}]\n", "name is required"},
		{"missing script file", "name: x\ndescription: d\nscript: nope.yaml\nassertions: [{type: references_resolve}]\n", "script file not found"},
		{"no assertions", "name: x\ndescription: d\nscript: script.yaml\nassertions: []\n", "assertions list is required"},
		{"unknown assertion", "name: x\ndescription: d\nscript: script.yaml\nassertions: [{type: bogus}]\n", `unknown assertion type "bogus"`},
		{"count without kind", "name: x\ndescription: d\nscript: script.yaml\nassertions: [{type: stream_count, count: 1}]\n", "kind is required"},
		{"bad status", "name: x\ndescription: d\nscript: script.yaml\nassertions: [{type: step_statuses, statuses: [GREEN]}]\n", "assertions[0]"},
		{"run success without value", "name: x\ndescription: d\nscript: script.yaml\nassertions: [{type: run_success}]\n", "success is required"},
		{"bad id style", "name: x\ndescription: d\nscript: script.yaml\nid_style: uuid\nassertions: [{type: references_resolve}]\n", "invalid scenario"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_Calculator(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/calculator.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.False(t, result.Success)
}

func TestRun_Retry(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/retry.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.True(t, result.Success)
}

func TestRun_FailingAssertionsAreReported(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/calculator.yaml")
	require.NoError(t, err)
	yes := true
	s.Assertions = []Assertion{
		{Type: AssertRunSuccess, Success: &yes},
		{Type: AssertStreamCount, Kind: "pickle", Count: 5},
		{Type: AssertStreamContains, Kind: "externalAttachment"},
		{Type: AssertStreamOrder, Kinds: []string{"testRunFinished", "meta"}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Expected: success=true")
	assert.Contains(t, result.Errors[1], "appears 2 time(s)")
	assert.Contains(t, result.Errors[2], "not found in trace")
	assert.Contains(t, result.Errors[3], "testRunFinished (seq 27) should be before meta (seq 1)")
}

func TestRun_MissingScript(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{Name: "x", Script: filepath.Join(t.TempDir(), "none.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load script")
}

func TestAssertReferencesResolve_Broken(t *testing.T) {
	trace := []TraceEvent{
		{Seq: 1, Kind: "testCaseStarted", Envelope: messages.NewEnvelope(&messages.TestCaseStarted{ID: "a", TestCaseID: "missing"})},
	}
	err := assertReferencesResolve(trace)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `seq 1: unknown test case "missing"`)
}

func TestSnapshot(t *testing.T) {
	trace := []TraceEvent{
		{Seq: 1, Kind: "meta"},
		{Seq: 2, Feature: "Login", Kind: "close"},
		{Seq: 3, Kind: "testRunFinished", Detail: "success=true"},
	}
	assert.Equal(t, "1 - meta\n2 Login close\n3 - testRunFinished success=true\n", string(Snapshot(trace)))
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertStreamCount,
		Expected: "pickle appears 1 time(s)",
		Actual:   "appears 0 time(s)",
		Trace:    []TraceEvent{{Seq: 1, Kind: "meta"}},
	}
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "Assertion failed: stream_count\n"))
	assert.Contains(t, msg, "  1 - meta\n")
}
