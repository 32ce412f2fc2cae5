package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cukemsg/internal/gherkin"
	"github.com/roach88/cukemsg/internal/messages"
)

// Script describes a test run without executing anything: which feature
// documents run, and what each step of each scenario reports.
//
//	features:
//	  - document: features/calculator.yaml
//	    scenarios:
//	      - pickle: 0
//	        steps:
//	          - status: PASSED
//	            duration: 3ms
//	          - status: FAILED
//	            message: expected 3, got 4
//	            attachments:
//	              - body: screenshot
//	                mediaType: text/plain
//
// A feature without scenarios runs every pickle with every step passing.
// Steps left out of a scenario pass, or are skipped once a step failed.
type Script struct {
	Features []ScriptFeature `yaml:"features"`
}

// ScriptFeature is one feature document and its scenarios.
type ScriptFeature struct {
	// Document is the document file, relative to the script.
	Document  string           `yaml:"document"`
	Scenarios []ScriptScenario `yaml:"scenarios,omitempty"`
}

// ScriptScenario reports one attempt at a pickle.
type ScriptScenario struct {
	// Pickle is the zero-based pickle index. Defaults to the scenario's
	// position in the list.
	Pickle *int         `yaml:"pickle,omitempty"`
	Steps  []ScriptStep `yaml:"steps,omitempty"`
}

// ScriptStep is the outcome of one step.
type ScriptStep struct {
	Status      string             `yaml:"status,omitempty"`
	Duration    time.Duration      `yaml:"duration,omitempty"`
	Message     string             `yaml:"message,omitempty"`
	Attachments []ScriptAttachment `yaml:"attachments,omitempty"`
}

// ScriptAttachment is content attached during a step.
type ScriptAttachment struct {
	Body      string `yaml:"body,omitempty"`
	Base64    bool   `yaml:"base64,omitempty"`
	MediaType string `yaml:"mediaType"`
	FileName  string `yaml:"fileName,omitempty"`
	URL       string `yaml:"url,omitempty"`
}

// LoadScript decodes a script. Unknown fields are rejected.
func LoadScript(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("decode script: empty input")
		}
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScriptFile reads and decodes a script file.
func LoadScriptFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := LoadScript(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Script) validate() error {
	for i, f := range s.Features {
		if f.Document == "" {
			return fmt.Errorf("features[%d]: document is required", i)
		}
		for j, sc := range f.Scenarios {
			for k, st := range sc.Steps {
				if _, err := parseStatus(st.Status, false); err != nil {
					return fmt.Errorf("features[%d].scenarios[%d].steps[%d]: %w", i, j, k, err)
				}
			}
		}
	}
	return nil
}

// parseStatus parses a step status. An empty status passes, or is skipped
// after an earlier failure.
func parseStatus(s string, afterFailure bool) (messages.TestStepResultStatus, error) {
	if s == "" {
		if afterFailure {
			return messages.StatusSkipped, nil
		}
		return messages.StatusPassed, nil
	}
	return messages.ParseStatus(strings.ToUpper(s))
}

// Play reports the whole script through p and returns whether the run
// succeeded. Document paths are resolved against dir.
func Play(ctx context.Context, p *Publisher, s *Script, dir string) (bool, error) {
	if err := p.StartRun(ctx); err != nil {
		return false, err
	}

	for _, sf := range s.Features {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := playFeature(ctx, p, sf, dir); err != nil {
			return false, err
		}
	}

	return p.FinishRun(ctx)
}

func playFeature(ctx context.Context, p *Publisher, sf ScriptFeature, dir string) error {
	path := sf.Document
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	doc, err := gherkin.LoadFile(path)
	if err != nil {
		return err
	}
	f, err := p.StartFeature(ctx, doc)
	if err != nil {
		return err
	}

	if len(sf.Scenarios) == 0 {
		for {
			sc, ok, err := f.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if err := playScenario(ctx, sc, nil); err != nil {
				return err
			}
		}
		return f.Finish(ctx)
	}

	for i, ss := range sf.Scenarios {
		index := i
		if ss.Pickle != nil {
			index = *ss.Pickle
		}
		sc, err := f.StartScenario(ctx, index)
		if err != nil {
			return err
		}
		if err := playScenario(ctx, sc, ss.Steps); err != nil {
			return err
		}
	}
	return f.Finish(ctx)
}

func playScenario(ctx context.Context, sc *Scenario, steps []ScriptStep) error {
	failed := false
	for i := range sc.Steps() {
		var st ScriptStep
		if i < len(steps) {
			st = steps[i]
		}
		status, err := parseStatus(st.Status, failed)
		if err != nil {
			return err
		}

		if _, err := sc.StartStep(ctx); err != nil {
			return err
		}
		for _, a := range st.Attachments {
			if err := sc.Attach(ctx, attachmentOf(a)); err != nil {
				return err
			}
		}
		result := StepResult{Status: status, Duration: st.Duration, Message: st.Message}
		if status == messages.StatusFailed && st.Message != "" {
			result.Exception = &messages.Exception{Type: "AssertionError", Message: st.Message}
		}
		if err := sc.FinishStep(ctx, result); err != nil {
			return err
		}
		if !passing(status) {
			failed = true
		}
	}
	return sc.Finish(ctx)
}

func attachmentOf(a ScriptAttachment) Attachment {
	enc := messages.EncodingIdentity
	if a.Base64 {
		enc = messages.EncodingBase64
	}
	return Attachment{
		Body:      a.Body,
		Encoding:  enc,
		MediaType: a.MediaType,
		FileName:  a.FileName,
		URL:       a.URL,
	}
}
