package messages

// Source is the raw text of a feature file.
type Source struct {
	URI       string          `json:"uri"`
	Data      string          `json:"data"`
	MediaType SourceMediaType `json:"mediaType"`
}

// Location is a position in a source document. Line 0 marks a location that
// the parser did not supply.
type Location struct {
	Line   int64 `json:"line"`
	Column int64 `json:"column,omitempty"`
}

// GherkinDocument is the protocol form of a parsed feature file.
type GherkinDocument struct {
	URI      string    `json:"uri,omitempty"`
	Feature  *Feature  `json:"feature,omitempty"`
	Comments []Comment `json:"comments"`
}

// Comment is a source comment line.
type Comment struct {
	Location Location `json:"location"`
	Text     string   `json:"text"`
}

// Feature is the root node of a GherkinDocument.
type Feature struct {
	Location    Location       `json:"location"`
	Tags        []Tag          `json:"tags"`
	Language    string         `json:"language"`
	Keyword     string         `json:"keyword"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Children    []FeatureChild `json:"children"`
}

// FeatureChild holds exactly one of Rule, Background or Scenario.
type FeatureChild struct {
	Rule       *Rule       `json:"rule,omitempty"`
	Background *Background `json:"background,omitempty"`
	Scenario   *Scenario   `json:"scenario,omitempty"`
}

// Rule groups scenarios under a business rule.
type Rule struct {
	Location    Location    `json:"location"`
	Tags        []Tag       `json:"tags"`
	Keyword     string      `json:"keyword"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Children    []RuleChild `json:"children"`
	ID          string      `json:"id"`
}

// RuleChild holds exactly one of Background or Scenario.
type RuleChild struct {
	Background *Background `json:"background,omitempty"`
	Scenario   *Scenario   `json:"scenario,omitempty"`
}

// Background holds steps run before every scenario in its scope.
type Background struct {
	Location    Location `json:"location"`
	Keyword     string   `json:"keyword"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Steps       []Step   `json:"steps"`
	ID          string   `json:"id"`
}

// Scenario is a scenario or, when Examples is non-empty, a scenario outline.
type Scenario struct {
	Location    Location   `json:"location"`
	Tags        []Tag      `json:"tags"`
	Keyword     string     `json:"keyword"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Steps       []Step     `json:"steps"`
	Examples    []Examples `json:"examples"`
	ID          string     `json:"id"`
}

// Examples is one examples table of a scenario outline.
type Examples struct {
	Location    Location   `json:"location"`
	Tags        []Tag      `json:"tags"`
	Keyword     string     `json:"keyword"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	TableHeader *TableRow  `json:"tableHeader,omitempty"`
	TableBody   []TableRow `json:"tableBody"`
	ID          string     `json:"id"`
}

// TableRow is a row of a data table or examples table.
type TableRow struct {
	Location Location    `json:"location"`
	Cells    []TableCell `json:"cells"`
	ID       string      `json:"id"`
}

// TableCell is a single cell of a TableRow.
type TableCell struct {
	Location Location `json:"location"`
	Value    string   `json:"value"`
}

// Step is a single Given/When/Then line.
type Step struct {
	Location    Location         `json:"location"`
	Keyword     string           `json:"keyword"`
	KeywordType *StepKeywordType `json:"keywordType,omitempty"`
	Text        string           `json:"text"`
	DocString   *DocString       `json:"docString,omitempty"`
	DataTable   *DataTable       `json:"dataTable,omitempty"`
	ID          string           `json:"id"`
}

// DocString is a multi-line step argument.
type DocString struct {
	Location  Location `json:"location"`
	MediaType string   `json:"mediaType,omitempty"`
	Content   string   `json:"content"`
	Delimiter string   `json:"delimiter"`
}

// DataTable is a tabular step argument.
type DataTable struct {
	Location Location   `json:"location"`
	Rows     []TableRow `json:"rows"`
}

// Tag is an @tag attached to a feature, rule, scenario or examples.
type Tag struct {
	Location Location `json:"location"`
	Name     string   `json:"name"`
	ID       string   `json:"id"`
}

// AllIDs returns every id carried by a node of the document, in document
// order. Used to check that pickle back-references resolve.
func (d *GherkinDocument) AllIDs() []string {
	if d == nil || d.Feature == nil {
		return nil
	}
	var out []string
	tags := func(ts []Tag) {
		for _, t := range ts {
			out = append(out, t.ID)
		}
	}
	rows := func(rs []TableRow) {
		for _, r := range rs {
			out = append(out, r.ID)
		}
	}
	steps := func(ss []Step) {
		for _, s := range ss {
			out = append(out, s.ID)
			if s.DataTable != nil {
				rows(s.DataTable.Rows)
			}
		}
	}
	background := func(b *Background) {
		out = append(out, b.ID)
		steps(b.Steps)
	}
	scenario := func(s *Scenario) {
		out = append(out, s.ID)
		tags(s.Tags)
		steps(s.Steps)
		for _, ex := range s.Examples {
			out = append(out, ex.ID)
			tags(ex.Tags)
			if ex.TableHeader != nil {
				out = append(out, ex.TableHeader.ID)
			}
			rows(ex.TableBody)
		}
	}

	tags(d.Feature.Tags)
	for _, c := range d.Feature.Children {
		switch {
		case c.Background != nil:
			background(c.Background)
		case c.Scenario != nil:
			scenario(c.Scenario)
		case c.Rule != nil:
			out = append(out, c.Rule.ID)
			tags(c.Rule.Tags)
			for _, rc := range c.Rule.Children {
				if rc.Background != nil {
					background(rc.Background)
				}
				if rc.Scenario != nil {
					scenario(rc.Scenario)
				}
			}
		}
	}
	return out
}
