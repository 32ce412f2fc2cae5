package gherkin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load decodes a document tree from YAML or JSON.
func Load(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("load document: empty input")
		}
		return Document{}, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

// LoadFile reads a document tree from path. When the file does not name a
// uri, path is used.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("load document: %w", err)
	}
	doc, err := Load(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	if doc.URI == "" {
		doc.URI = path
	}
	return doc, nil
}

// childNode is the on-disk form of a Child: a mapping with exactly one key.
type childNode struct {
	Background      *Background      `yaml:"background"`
	Scenario        *Scenario        `yaml:"scenario"`
	ScenarioOutline *ScenarioOutline `yaml:"scenarioOutline"`
	Rule            *Rule            `yaml:"rule"`
}

func (c childNode) child(allowRule bool) (Child, error) {
	var set []Child
	if c.Background != nil {
		set = append(set, c.Background)
	}
	if c.Scenario != nil {
		set = append(set, c.Scenario)
	}
	if c.ScenarioOutline != nil {
		set = append(set, c.ScenarioOutline)
	}
	if c.Rule != nil {
		if !allowRule {
			return nil, errors.New("rule cannot contain a rule")
		}
		set = append(set, c.Rule)
	}
	if len(set) != 1 {
		return nil, fmt.Errorf("child must have exactly one of background, scenario, scenarioOutline, rule; got %d", len(set))
	}
	return set[0], nil
}

func (f *Feature) UnmarshalYAML(value *yaml.Node) error {
	type plain Feature
	if err := value.Decode((*plain)(f)); err != nil {
		return err
	}
	children, err := decodeChildren(value, true)
	if err != nil {
		return fmt.Errorf("feature %q: %w", f.Name, err)
	}
	f.Children = children
	return nil
}

func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	type plain Rule
	if err := value.Decode((*plain)(r)); err != nil {
		return err
	}
	children, err := decodeChildren(value, false)
	if err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	r.Children = children
	return nil
}

func decodeChildren(value *yaml.Node, allowRule bool) ([]Child, error) {
	if value.Kind != yaml.MappingNode {
		return nil, nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value != "children" {
			continue
		}
		var nodes []childNode
		if err := value.Content[i+1].Decode(&nodes); err != nil {
			return nil, err
		}
		if nodes == nil {
			return nil, nil
		}
		children := make([]Child, 0, len(nodes))
		for j, n := range nodes {
			ch, err := n.child(allowRule)
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", j, err)
			}
			children = append(children, ch)
		}
		return children, nil
	}
	return nil, nil
}
