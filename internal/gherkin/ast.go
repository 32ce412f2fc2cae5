package gherkin

import "github.com/roach88/cukemsg/internal/messages"

// Location is a 1-based line/column position. A nil *Location means the
// parser did not record one.
type Location struct {
	Line   int64 `yaml:"line"`
	Column int64 `yaml:"column"`
}

// Document is a parsed feature file.
type Document struct {
	URI string `yaml:"uri"`
	// Source is the raw feature text, when the parser kept it.
	Source   string    `yaml:"source,omitempty"`
	Feature  *Feature  `yaml:"feature,omitempty"`
	Comments []Comment `yaml:"comments,omitempty"`
}

type Comment struct {
	Location *Location `yaml:"location,omitempty"`
	Text     string    `yaml:"text"`
}

type Feature struct {
	Location    *Location `yaml:"location,omitempty"`
	Tags        []Tag     `yaml:"tags,omitempty"`
	Language    string    `yaml:"language"`
	Keyword     string    `yaml:"keyword"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Children    []Child   `yaml:"-"`
}

// Child is a node that can appear under a Feature or Rule: *Background,
// *Scenario, *ScenarioOutline or *Rule. Rules never nest.
//
// This is a sealed interface; only types in this package implement it.
type Child interface {
	isChild()
}

func (*Background) isChild()      {}
func (*Scenario) isChild()        {}
func (*ScenarioOutline) isChild() {}
func (*Rule) isChild()            {}

type Rule struct {
	ID          string    `yaml:"id,omitempty"`
	Location    *Location `yaml:"location,omitempty"`
	Tags        []Tag     `yaml:"tags,omitempty"`
	Keyword     string    `yaml:"keyword"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Children    []Child   `yaml:"-"`
}

type Background struct {
	ID          string    `yaml:"id,omitempty"`
	Location    *Location `yaml:"location,omitempty"`
	Keyword     string    `yaml:"keyword"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Steps       []Step    `yaml:"steps,omitempty"`
}

type Scenario struct {
	ID          string    `yaml:"id,omitempty"`
	Location    *Location `yaml:"location,omitempty"`
	Tags        []Tag     `yaml:"tags,omitempty"`
	Keyword     string    `yaml:"keyword"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Steps       []Step    `yaml:"steps,omitempty"`
}

// ScenarioOutline is a scenario template expanded once per examples row.
type ScenarioOutline struct {
	ID          string     `yaml:"id,omitempty"`
	Location    *Location  `yaml:"location,omitempty"`
	Tags        []Tag      `yaml:"tags,omitempty"`
	Keyword     string     `yaml:"keyword"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Steps       []Step     `yaml:"steps,omitempty"`
	Examples    []Examples `yaml:"examples,omitempty"`
}

type Examples struct {
	ID          string     `yaml:"id,omitempty"`
	Location    *Location  `yaml:"location,omitempty"`
	Tags        []Tag      `yaml:"tags,omitempty"`
	Keyword     string     `yaml:"keyword"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	TableHeader *TableRow  `yaml:"tableHeader,omitempty"`
	TableBody   []TableRow `yaml:"tableBody,omitempty"`
}

type Step struct {
	ID          string                    `yaml:"id,omitempty"`
	Location    *Location                 `yaml:"location,omitempty"`
	Keyword     string                    `yaml:"keyword"`
	KeywordType *messages.StepKeywordType `yaml:"keywordType,omitempty"`
	Text        string                    `yaml:"text"`
	DocString   *DocString                `yaml:"docString,omitempty"`
	DataTable   *DataTable                `yaml:"dataTable,omitempty"`
}

type DocString struct {
	Location  *Location `yaml:"location,omitempty"`
	MediaType string    `yaml:"mediaType,omitempty"`
	Content   string    `yaml:"content"`
	Delimiter string    `yaml:"delimiter,omitempty"`
}

type DataTable struct {
	Location *Location  `yaml:"location,omitempty"`
	Rows     []TableRow `yaml:"rows,omitempty"`
}

type TableRow struct {
	ID       string      `yaml:"id,omitempty"`
	Location *Location   `yaml:"location,omitempty"`
	Cells    []TableCell `yaml:"cells,omitempty"`
}

type TableCell struct {
	Location *Location `yaml:"location,omitempty"`
	Value    string    `yaml:"value"`
}

type Tag struct {
	ID       string    `yaml:"id,omitempty"`
	Location *Location `yaml:"location,omitempty"`
	Name     string    `yaml:"name"`
}
