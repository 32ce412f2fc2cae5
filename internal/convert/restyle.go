package convert

import (
	"github.com/roach88/cukemsg/internal/ids"
	"github.com/roach88/cukemsg/internal/messages"
)

// Restyle rewrites the ids of a document and its pickles into the target
// style, minting new ids from gen.
//
// The current style is read from the id of the feature's first child. When
// it already matches target, or the document has no children, the inputs are
// returned unchanged with a nil id map. Otherwise every document id and every
// pickle and pickle step id is replaced, and pickle back-references are
// remapped through the returned old-to-new id map. The inputs are not
// modified.
func Restyle(doc *messages.GherkinDocument, ps []messages.Pickle, gen ids.Generator, target ids.Style) (*messages.GherkinDocument, []messages.Pickle, map[string]string) {
	first, ok := firstChildID(doc)
	if !ok || ids.StyleOf(first) == target {
		return doc, ps, nil
	}
	r := &rewriter{gen: gen, idMap: make(map[string]string)}
	outDoc := r.document(doc)
	outPickles := make([]messages.Pickle, 0, len(ps))
	for _, p := range ps {
		outPickles = append(outPickles, r.pickle(p))
	}
	return outDoc, outPickles, r.idMap
}

func firstChildID(doc *messages.GherkinDocument) (string, bool) {
	if doc == nil || doc.Feature == nil || len(doc.Feature.Children) == 0 {
		return "", false
	}
	ch := doc.Feature.Children[0]
	switch {
	case ch.Background != nil:
		return ch.Background.ID, true
	case ch.Scenario != nil:
		return ch.Scenario.ID, true
	case ch.Rule != nil:
		return ch.Rule.ID, true
	}
	return "", false
}

type rewriter struct {
	gen   ids.Generator
	idMap map[string]string
}

// rewrite maps an old id to its replacement, minting one on first sight.
func (r *rewriter) rewrite(old string) string {
	if id, ok := r.idMap[old]; ok {
		return id
	}
	id := r.gen.NewID()
	r.idMap[old] = id
	return id
}

// lookup remaps a back-reference; ids not in the document pass through.
func (r *rewriter) lookup(old string) string {
	if id, ok := r.idMap[old]; ok {
		return id
	}
	return old
}

func (r *rewriter) document(doc *messages.GherkinDocument) *messages.GherkinDocument {
	out := *doc
	out.Comments = append([]messages.Comment{}, doc.Comments...)
	f := *doc.Feature
	f.Tags = r.tags(f.Tags)
	f.Children = make([]messages.FeatureChild, 0, len(doc.Feature.Children))
	for _, ch := range doc.Feature.Children {
		var c messages.FeatureChild
		switch {
		case ch.Background != nil:
			c.Background = r.background(ch.Background)
		case ch.Scenario != nil:
			c.Scenario = r.scenario(ch.Scenario)
		case ch.Rule != nil:
			c.Rule = r.rule(ch.Rule)
		}
		f.Children = append(f.Children, c)
	}
	out.Feature = &f
	return &out
}

func (r *rewriter) rule(in *messages.Rule) *messages.Rule {
	out := *in
	out.ID = r.rewrite(in.ID)
	out.Tags = r.tags(in.Tags)
	out.Children = make([]messages.RuleChild, 0, len(in.Children))
	for _, ch := range in.Children {
		var c messages.RuleChild
		if ch.Background != nil {
			c.Background = r.background(ch.Background)
		}
		if ch.Scenario != nil {
			c.Scenario = r.scenario(ch.Scenario)
		}
		out.Children = append(out.Children, c)
	}
	return &out
}

func (r *rewriter) background(in *messages.Background) *messages.Background {
	out := *in
	out.ID = r.rewrite(in.ID)
	out.Steps = r.steps(in.Steps)
	return &out
}

func (r *rewriter) scenario(in *messages.Scenario) *messages.Scenario {
	out := *in
	out.ID = r.rewrite(in.ID)
	out.Tags = r.tags(in.Tags)
	out.Steps = r.steps(in.Steps)
	out.Examples = make([]messages.Examples, 0, len(in.Examples))
	for _, ex := range in.Examples {
		ex.ID = r.rewrite(ex.ID)
		ex.Tags = r.tags(ex.Tags)
		if ex.TableHeader != nil {
			h := r.row(*ex.TableHeader)
			ex.TableHeader = &h
		}
		ex.TableBody = r.rows(ex.TableBody)
		out.Examples = append(out.Examples, ex)
	}
	return &out
}

func (r *rewriter) tags(in []messages.Tag) []messages.Tag {
	out := make([]messages.Tag, 0, len(in))
	for _, t := range in {
		t.ID = r.rewrite(t.ID)
		out = append(out, t)
	}
	return out
}

func (r *rewriter) steps(in []messages.Step) []messages.Step {
	out := make([]messages.Step, 0, len(in))
	for _, s := range in {
		s.ID = r.rewrite(s.ID)
		if s.DataTable != nil {
			dt := *s.DataTable
			dt.Rows = r.rows(dt.Rows)
			s.DataTable = &dt
		}
		out = append(out, s)
	}
	return out
}

func (r *rewriter) rows(in []messages.TableRow) []messages.TableRow {
	out := make([]messages.TableRow, 0, len(in))
	for _, row := range in {
		out = append(out, r.row(row))
	}
	return out
}

func (r *rewriter) row(in messages.TableRow) messages.TableRow {
	in.ID = r.rewrite(in.ID)
	return in
}

func (r *rewriter) pickle(in messages.Pickle) messages.Pickle {
	out := in
	out.ID = r.gen.NewID()
	out.AstNodeIDs = r.refs(in.AstNodeIDs)
	out.Steps = make([]messages.PickleStep, 0, len(in.Steps))
	for _, s := range in.Steps {
		s.ID = r.gen.NewID()
		s.AstNodeIDs = r.refs(s.AstNodeIDs)
		out.Steps = append(out.Steps, s)
	}
	out.Tags = make([]messages.PickleTag, 0, len(in.Tags))
	for _, t := range in.Tags {
		t.AstNodeID = r.lookup(t.AstNodeID)
		out.Tags = append(out.Tags, t)
	}
	return out
}

func (r *rewriter) refs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, id := range in {
		out = append(out, r.lookup(id))
	}
	return out
}
