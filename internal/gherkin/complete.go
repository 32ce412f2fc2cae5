package gherkin

// Complete returns a copy of doc in which every node has a Location.
// Absent locations become (0,0); present ones are copied unchanged.
//
// Complete never mutates its input and shares no pointers with it, so it is
// safe to call concurrently on independent documents. It is idempotent.
// Nil slices stay nil and empty slices stay empty.
func Complete(doc Document) Document {
	out := doc
	out.Comments = mapSlice(doc.Comments, completeComment)
	if doc.Feature != nil {
		out.Feature = completeFeature(doc.Feature)
	}
	return out
}

func completeLocation(l *Location) *Location {
	if l == nil {
		return &Location{}
	}
	c := *l
	return &c
}

func mapSlice[T any](in []T, f func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

func completeFeature(f *Feature) *Feature {
	c := *f
	c.Location = completeLocation(f.Location)
	c.Tags = mapSlice(f.Tags, completeTag)
	c.Children = mapSlice(f.Children, completeChild)
	return &c
}

func completeChild(ch Child) Child {
	switch n := ch.(type) {
	case *Background:
		return completeBackground(n)
	case *Scenario:
		return completeScenario(n)
	case *ScenarioOutline:
		return completeOutline(n)
	case *Rule:
		return completeRule(n)
	}
	return ch
}

func completeRule(r *Rule) *Rule {
	c := *r
	c.Location = completeLocation(r.Location)
	c.Tags = mapSlice(r.Tags, completeTag)
	c.Children = mapSlice(r.Children, completeChild)
	return &c
}

func completeBackground(b *Background) *Background {
	c := *b
	c.Location = completeLocation(b.Location)
	c.Steps = mapSlice(b.Steps, completeStep)
	return &c
}

func completeScenario(s *Scenario) *Scenario {
	c := *s
	c.Location = completeLocation(s.Location)
	c.Tags = mapSlice(s.Tags, completeTag)
	c.Steps = mapSlice(s.Steps, completeStep)
	return &c
}

func completeOutline(s *ScenarioOutline) *ScenarioOutline {
	c := *s
	c.Location = completeLocation(s.Location)
	c.Tags = mapSlice(s.Tags, completeTag)
	c.Steps = mapSlice(s.Steps, completeStep)
	c.Examples = mapSlice(s.Examples, completeExamples)
	return &c
}

func completeExamples(e Examples) Examples {
	e.Location = completeLocation(e.Location)
	e.Tags = mapSlice(e.Tags, completeTag)
	if e.TableHeader != nil {
		h := completeRow(*e.TableHeader)
		e.TableHeader = &h
	}
	e.TableBody = mapSlice(e.TableBody, completeRow)
	return e
}

func completeStep(s Step) Step {
	s.Location = completeLocation(s.Location)
	if s.KeywordType != nil {
		kt := *s.KeywordType
		s.KeywordType = &kt
	}
	if s.DocString != nil {
		d := *s.DocString
		d.Location = completeLocation(d.Location)
		s.DocString = &d
	}
	if s.DataTable != nil {
		t := *s.DataTable
		t.Location = completeLocation(t.Location)
		t.Rows = mapSlice(t.Rows, completeRow)
		s.DataTable = &t
	}
	return s
}

func completeRow(r TableRow) TableRow {
	r.Location = completeLocation(r.Location)
	r.Cells = mapSlice(r.Cells, completeCell)
	return r
}

func completeCell(c TableCell) TableCell {
	c.Location = completeLocation(c.Location)
	return c
}

func completeTag(t Tag) Tag {
	t.Location = completeLocation(t.Location)
	return t
}

func completeComment(c Comment) Comment {
	c.Location = completeLocation(c.Location)
	return c
}
