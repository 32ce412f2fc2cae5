// Package pickles compiles a protocol GherkinDocument into Pickles: one per
// Scenario and one per examples row of every Scenario Outline.
package pickles

import (
	"strings"

	"github.com/roach88/cukemsg/internal/messages"
)

// Compiler turns a document whose every node carries an id into pickles.
// Pickle and pickle step ids are minted with newID.
type Compiler interface {
	Compile(doc *messages.GherkinDocument, newID func() string) ([]messages.Pickle, error)
}

// Func adapts a function to the Compiler interface.
type Func func(doc *messages.GherkinDocument, newID func() string) ([]messages.Pickle, error)

func (f Func) Compile(doc *messages.GherkinDocument, newID func() string) ([]messages.Pickle, error) {
	return f(doc, newID)
}

// Default is the standard Gherkin pickle compiler.
var Default Compiler = Func(func(doc *messages.GherkinDocument, newID func() string) ([]messages.Pickle, error) {
	return Compile(doc, newID), nil
})

// Compile expands doc into pickles in document order.
//
// Tags accumulate from feature to rule to scenario to examples. Background
// steps are prepended to every scenario in scope that has steps of its own.
func Compile(doc *messages.GherkinDocument, newID func() string) []messages.Pickle {
	pickles := []messages.Pickle{}
	if doc == nil || doc.Feature == nil {
		return pickles
	}
	c := &compiler{
		uri:      doc.URI,
		language: doc.Feature.Language,
		newID:    newID,
	}
	featureTags := doc.Feature.Tags
	var background []messages.Step
	for _, child := range doc.Feature.Children {
		switch {
		case child.Background != nil:
			background = child.Background.Steps
		case child.Rule != nil:
			pickles = append(pickles, c.rule(featureTags, background, child.Rule)...)
		case child.Scenario != nil:
			pickles = append(pickles, c.scenario(featureTags, background, child.Scenario)...)
		}
	}
	return pickles
}

type compiler struct {
	uri      string
	language string
	newID    func() string
}

func (c *compiler) rule(tags []messages.Tag, background []messages.Step, r *messages.Rule) []messages.Pickle {
	var out []messages.Pickle
	steps := append([]messages.Step(nil), background...)
	ruleTags := concat(tags, r.Tags)
	for _, child := range r.Children {
		switch {
		case child.Background != nil:
			steps = append(steps, child.Background.Steps...)
		case child.Scenario != nil:
			out = append(out, c.scenario(ruleTags, steps, child.Scenario)...)
		}
	}
	return out
}

func (c *compiler) scenario(tags []messages.Tag, background []messages.Step, s *messages.Scenario) []messages.Pickle {
	if len(s.Examples) == 0 {
		return []messages.Pickle{c.plain(tags, background, s)}
	}
	return c.outline(tags, background, s)
}

func (c *compiler) plain(tags []messages.Tag, background []messages.Step, s *messages.Scenario) messages.Pickle {
	var kt keywordTracker
	steps := []messages.PickleStep{}
	if len(s.Steps) > 0 {
		for _, st := range background {
			steps = append(steps, c.step(st, &kt, nil, nil, nil))
		}
	}
	for _, st := range s.Steps {
		steps = append(steps, c.step(st, &kt, nil, nil, nil))
	}
	location := s.Location
	return messages.Pickle{
		ID:         c.newID(),
		URI:        c.uri,
		Location:   &location,
		Name:       s.Name,
		Language:   c.language,
		Steps:      steps,
		Tags:       pickleTags(concat(tags, s.Tags)),
		AstNodeIDs: []string{s.ID},
	}
}

func (c *compiler) outline(tags []messages.Tag, background []messages.Step, s *messages.Scenario) []messages.Pickle {
	var out []messages.Pickle
	for _, ex := range s.Examples {
		if ex.TableHeader == nil {
			continue
		}
		header := ex.TableHeader.Cells
		for _, row := range ex.TableBody {
			var kt keywordTracker
			steps := []messages.PickleStep{}
			if len(s.Steps) > 0 {
				for _, st := range background {
					steps = append(steps, c.step(st, &kt, nil, nil, nil))
				}
			}
			for _, st := range s.Steps {
				steps = append(steps, c.step(st, &kt, header, row.Cells, []string{row.ID}))
			}
			location := row.Location
			out = append(out, messages.Pickle{
				ID:         c.newID(),
				URI:        c.uri,
				Location:   &location,
				Name:       interpolate(s.Name, header, row.Cells),
				Language:   c.language,
				Steps:      steps,
				Tags:       pickleTags(concat(concat(tags, s.Tags), ex.Tags)),
				AstNodeIDs: []string{s.ID, row.ID},
			})
		}
	}
	return out
}

func (c *compiler) step(st messages.Step, kt *keywordTracker, header, values []messages.TableCell, extraIDs []string) messages.PickleStep {
	typ := kt.next(st.KeywordType)
	ps := messages.PickleStep{
		AstNodeIDs: append([]string{st.ID}, extraIDs...),
		ID:         c.newID(),
		Type:       &typ,
		Text:       interpolate(st.Text, header, values),
	}
	switch {
	case st.DataTable != nil:
		rows := make([]messages.PickleTableRow, 0, len(st.DataTable.Rows))
		for _, r := range st.DataTable.Rows {
			cells := make([]messages.PickleTableCell, 0, len(r.Cells))
			for _, cell := range r.Cells {
				cells = append(cells, messages.PickleTableCell{Value: interpolate(cell.Value, header, values)})
			}
			rows = append(rows, messages.PickleTableRow{Cells: cells})
		}
		ps.Argument = &messages.PickleStepArgument{DataTable: &messages.PickleTable{Rows: rows}}
	case st.DocString != nil:
		ps.Argument = &messages.PickleStepArgument{DocString: &messages.PickleDocString{
			MediaType: interpolate(st.DocString.MediaType, header, values),
			Content:   interpolate(st.DocString.Content, header, values),
		}}
	}
	return ps
}

// keywordTracker resolves conjunctions ("And", "But") to the type of the
// preceding step.
type keywordTracker struct {
	last messages.PickleStepType
}

func (k *keywordTracker) next(kw *messages.StepKeywordType) messages.PickleStepType {
	if kw == nil {
		k.last = messages.PickleStepUnknown
		return k.last
	}
	switch *kw {
	case messages.KeywordTypeContext:
		k.last = messages.PickleStepContext
	case messages.KeywordTypeAction:
		k.last = messages.PickleStepAction
	case messages.KeywordTypeOutcome:
		k.last = messages.PickleStepOutcome
	case messages.KeywordTypeConjunction:
	default:
		k.last = messages.PickleStepUnknown
	}
	return k.last
}

func interpolate(s string, header, values []messages.TableCell) string {
	for i, h := range header {
		if i >= len(values) {
			break
		}
		s = strings.ReplaceAll(s, "<"+h.Value+">", values[i].Value)
	}
	return s
}

func concat(a, b []messages.Tag) []messages.Tag {
	out := make([]messages.Tag, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

func pickleTags(tags []messages.Tag) []messages.PickleTag {
	out := make([]messages.PickleTag, 0, len(tags))
	for _, t := range tags {
		out = append(out, messages.PickleTag{Name: t.Name, AstNodeID: t.ID})
	}
	return out
}
