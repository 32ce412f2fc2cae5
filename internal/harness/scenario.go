package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cukemsg/internal/ids"
	"github.com/roach88/cukemsg/internal/messages"
)

// Scenario defines a conformance scenario.
// A scenario plays a run script through the publisher and asserts on the
// message stream it produced.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Script is the run script to play.
	// Relative paths are resolved against the scenario file.
	Script string `yaml:"script"`

	// IDStyle selects the id generator. Defaults to INCREMENTING so traces
	// are reproducible.
	IDStyle string `yaml:"id_style,omitempty"`

	// Assertions validate the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "stream_contains": an envelope of Kind (in Feature, if set) appears
	// - "stream_order": the first occurrences of Kinds appear in order
	// - "stream_count": Kind appears exactly Count times
	// - "step_statuses": step results appear with Statuses, in order
	// - "run_success": the run reported Success
	// - "references_resolve": every id reference points at an earlier message
	Type string `yaml:"type"`

	// Kind is the envelope kind (stream_contains, stream_count).
	Kind string `yaml:"kind,omitempty"`

	// Feature restricts stream_contains and stream_count to one feature.
	Feature string `yaml:"feature,omitempty"`

	// Kinds is the expected kind order (stream_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the expected number of occurrences (stream_count).
	Count int `yaml:"count,omitempty"`

	// Statuses are the expected step results (step_statuses).
	Statuses []string `yaml:"statuses,omitempty"`

	// Success is the expected run outcome (run_success).
	Success *bool `yaml:"success,omitempty"`
}

// Assertion type constants.
const (
	AssertStreamContains    = "stream_contains"
	AssertStreamOrder       = "stream_order"
	AssertStreamCount       = "stream_count"
	AssertStepStatuses      = "step_statuses"
	AssertRunSuccess        = "run_success"
	AssertReferencesResolve = "references_resolve"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The script path is resolved against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Script != "" && !filepath.IsAbs(scenario.Script) {
		scenario.Script = filepath.Join(filepath.Dir(path), scenario.Script)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Script == "" {
		return fmt.Errorf("script is required")
	}
	if _, err := os.Stat(s.Script); os.IsNotExist(err) {
		return fmt.Errorf("script file not found: %s", s.Script)
	}

	if s.IDStyle != "" {
		if _, err := ids.ParseStyle(s.IDStyle); err != nil {
			return err
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStreamContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for stream_contains", index)
		}
	case AssertStreamOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for stream_order", index)
		}
	case AssertStreamCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for stream_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertStepStatuses:
		for _, s := range a.Statuses {
			if _, err := messages.ParseStatus(s); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertRunSuccess:
		if a.Success == nil {
			return fmt.Errorf("assertions[%d]: success is required for run_success", index)
		}
	case AssertReferencesResolve:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
