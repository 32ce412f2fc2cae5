package convert

import (
	"github.com/roach88/cukemsg/internal/gherkin"
	"github.com/roach88/cukemsg/internal/messages"
)

// ToProtocolDocument completes doc's locations, assigns an id to every
// id-bearing node that lacks one, and maps it to the protocol model.
// Ids are assigned depth-first, each node before its tags and children.
// Slices the protocol requires are never nil.
func (c *Converter) ToProtocolDocument(doc gherkin.Document) *messages.GherkinDocument {
	done := gherkin.Complete(doc)
	m := mapper{newID: c.gen.NewID}
	out := &messages.GherkinDocument{
		URI:      done.URI,
		Comments: mapAll(done.Comments, m.comment),
	}
	if done.Feature != nil {
		out.Feature = m.feature(done.Feature)
	}
	return out
}

type mapper struct {
	newID func() string
}

func (m mapper) id(existing string) string {
	if existing != "" {
		return existing
	}
	return m.newID()
}

// mapAll maps in to a non-nil slice.
func mapAll[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

// location dereferences a completed location.
func location(l *gherkin.Location) messages.Location {
	if l == nil {
		return messages.Location{}
	}
	return messages.Location{Line: l.Line, Column: l.Column}
}

func (m mapper) comment(c gherkin.Comment) messages.Comment {
	return messages.Comment{Location: location(c.Location), Text: c.Text}
}

func (m mapper) tag(t gherkin.Tag) messages.Tag {
	return messages.Tag{Location: location(t.Location), Name: t.Name, ID: m.id(t.ID)}
}

func (m mapper) feature(f *gherkin.Feature) *messages.Feature {
	out := &messages.Feature{
		Location:    location(f.Location),
		Tags:        mapAll(f.Tags, m.tag),
		Language:    f.Language,
		Keyword:     f.Keyword,
		Name:        f.Name,
		Description: f.Description,
		Children:    make([]messages.FeatureChild, 0, len(f.Children)),
	}
	for _, ch := range f.Children {
		switch n := ch.(type) {
		case *gherkin.Background:
			out.Children = append(out.Children, messages.FeatureChild{Background: m.background(n)})
		case *gherkin.Scenario:
			out.Children = append(out.Children, messages.FeatureChild{Scenario: m.scenario(n)})
		case *gherkin.ScenarioOutline:
			out.Children = append(out.Children, messages.FeatureChild{Scenario: m.outline(n)})
		case *gherkin.Rule:
			out.Children = append(out.Children, messages.FeatureChild{Rule: m.rule(n)})
		}
	}
	return out
}

func (m mapper) rule(r *gherkin.Rule) *messages.Rule {
	id := m.id(r.ID)
	out := &messages.Rule{
		Location:    location(r.Location),
		Tags:        mapAll(r.Tags, m.tag),
		Keyword:     r.Keyword,
		Name:        r.Name,
		Description: r.Description,
		Children:    make([]messages.RuleChild, 0, len(r.Children)),
		ID:          id,
	}
	for _, ch := range r.Children {
		switch n := ch.(type) {
		case *gherkin.Background:
			out.Children = append(out.Children, messages.RuleChild{Background: m.background(n)})
		case *gherkin.Scenario:
			out.Children = append(out.Children, messages.RuleChild{Scenario: m.scenario(n)})
		case *gherkin.ScenarioOutline:
			out.Children = append(out.Children, messages.RuleChild{Scenario: m.outline(n)})
		}
	}
	return out
}

func (m mapper) background(b *gherkin.Background) *messages.Background {
	id := m.id(b.ID)
	return &messages.Background{
		Location:    location(b.Location),
		Keyword:     b.Keyword,
		Name:        b.Name,
		Description: b.Description,
		Steps:       mapAll(b.Steps, m.step),
		ID:          id,
	}
}

func (m mapper) scenario(s *gherkin.Scenario) *messages.Scenario {
	id := m.id(s.ID)
	tags := mapAll(s.Tags, m.tag)
	return &messages.Scenario{
		Location:    location(s.Location),
		Tags:        tags,
		Keyword:     s.Keyword,
		Name:        s.Name,
		Description: s.Description,
		Steps:       mapAll(s.Steps, m.step),
		Examples:    []messages.Examples{},
		ID:          id,
	}
}

func (m mapper) outline(s *gherkin.ScenarioOutline) *messages.Scenario {
	id := m.id(s.ID)
	tags := mapAll(s.Tags, m.tag)
	steps := mapAll(s.Steps, m.step)
	return &messages.Scenario{
		Location:    location(s.Location),
		Tags:        tags,
		Keyword:     s.Keyword,
		Name:        s.Name,
		Description: s.Description,
		Steps:       steps,
		Examples:    mapAll(s.Examples, m.examples),
		ID:          id,
	}
}

func (m mapper) examples(e gherkin.Examples) messages.Examples {
	id := m.id(e.ID)
	out := messages.Examples{
		Location:    location(e.Location),
		Tags:        mapAll(e.Tags, m.tag),
		Keyword:     e.Keyword,
		Name:        e.Name,
		Description: e.Description,
		ID:          id,
	}
	if e.TableHeader != nil {
		h := m.row(*e.TableHeader)
		out.TableHeader = &h
	}
	out.TableBody = mapAll(e.TableBody, m.row)
	return out
}

func (m mapper) step(s gherkin.Step) messages.Step {
	out := messages.Step{
		Location: location(s.Location),
		Keyword:  s.Keyword,
		Text:     s.Text,
		ID:       m.id(s.ID),
	}
	if s.KeywordType != nil {
		kt := *s.KeywordType
		out.KeywordType = &kt
	}
	if s.DocString != nil {
		out.DocString = &messages.DocString{
			Location:  location(s.DocString.Location),
			MediaType: s.DocString.MediaType,
			Content:   s.DocString.Content,
			Delimiter: s.DocString.Delimiter,
		}
	}
	if s.DataTable != nil {
		out.DataTable = &messages.DataTable{
			Location: location(s.DataTable.Location),
			Rows:     mapAll(s.DataTable.Rows, m.row),
		}
	}
	return out
}

func (m mapper) row(r gherkin.TableRow) messages.TableRow {
	return messages.TableRow{
		Location: location(r.Location),
		Cells:    mapAll(r.Cells, m.cell),
		ID:       m.id(r.ID),
	}
}

func (m mapper) cell(c gherkin.TableCell) messages.TableCell {
	return messages.TableCell{Location: location(c.Location), Value: c.Value}
}
