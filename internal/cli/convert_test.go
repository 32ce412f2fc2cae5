package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cukemsg/internal/messages"
)

const calculatorDoc = "../gherkin/testdata/calculator.yaml"

func TestConvertToStdout(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewConvertCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{calculatorDoc, "--id-style", "INCREMENTING"})

	require.NoError(t, cmd.Execute())

	envs, err := messages.DecodeAll(buf)
	require.NoError(t, err)
	kinds := make([]string, len(envs))
	for i, e := range envs {
		kinds[i] = e.Kind()
	}
	assert.Equal(t, []string{"source", "gherkinDocument", "pickle", "pickle"}, kinds)
	assert.Equal(t, "features/calculator.feature", envs[0].Source.URI)
	assert.Equal(t, "Add", envs[2].Pickle.Name)

	// Incrementing ids start at zero and are shared by document and pickles.
	assert.Equal(t, "0", envs[1].GherkinDocument.AllIDs()[0])
	seen := map[string]bool{}
	for _, id := range envs[1].GherkinDocument.AllIDs() {
		seen[id] = true
	}
	for _, e := range envs[2:] {
		assert.False(t, seen[e.Pickle.ID], "pickle id %s reused", e.Pickle.ID)
		for _, ref := range e.Pickle.ReferencedIDs() {
			assert.True(t, seen[ref], "pickle references unknown node %s", ref)
		}
	}
}

func TestConvertMultipleDocumentsShareIDs(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{calculatorDoc, calculatorDoc, "--id-style", "INCREMENTING"})

	require.NoError(t, cmd.Execute())

	result, err := ValidateStream(buf)
	require.NoError(t, err)
	assert.True(t, result.Valid, "errors: %v", result.Errors)
	assert.Equal(t, 8, result.Envelopes)
}

func TestConvertToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "messages.ndjson")
	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{calculatorDoc, "-o", out})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string        `json:"status"`
		Data   ConvertResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ConvertResult{Output: out, Documents: 1, Pickles: 2, Envelopes: 4}, resp.Data)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, strings.Split(string(data), "\n"), 4)
}

func TestConvertInvalidIDStyle(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{calculatorDoc, "--id-style", "uuid"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E003]")
}

func TestConvertMissingDocument(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewConvertCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load document")
}

func TestConvertRequiresArgs(t *testing.T) {
	cmd := NewConvertCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.Error(t, cmd.Execute())
}
