package messages

// Pickle is a flattened, concretely executable scenario.
//
// AstNodeIDs reference the Scenario (and, for outlines, the examples row) it
// was compiled from; every id must exist in the source GherkinDocument.
type Pickle struct {
	ID         string       `json:"id"`
	URI        string       `json:"uri"`
	Location   *Location    `json:"location,omitempty"`
	Name       string       `json:"name"`
	Language   string       `json:"language"`
	Steps      []PickleStep `json:"steps"`
	Tags       []PickleTag  `json:"tags"`
	AstNodeIDs []string     `json:"astNodeIds"`
}

// PickleStep is one executable step of a Pickle.
type PickleStep struct {
	Argument   *PickleStepArgument `json:"argument,omitempty"`
	AstNodeIDs []string            `json:"astNodeIds"`
	ID         string              `json:"id"`
	Type       *PickleStepType     `json:"type,omitempty"`
	Text       string              `json:"text"`
}

// PickleStepArgument holds exactly one of DocString or DataTable.
type PickleStepArgument struct {
	DocString *PickleDocString `json:"docString,omitempty"`
	DataTable *PickleTable     `json:"dataTable,omitempty"`
}

// PickleDocString is a doc string with outline placeholders substituted.
type PickleDocString struct {
	MediaType string `json:"mediaType,omitempty"`
	Content   string `json:"content"`
}

// PickleTable is a data table with outline placeholders substituted.
type PickleTable struct {
	Rows []PickleTableRow `json:"rows"`
}

// PickleTableRow is a row of a PickleTable.
type PickleTableRow struct {
	Cells []PickleTableCell `json:"cells"`
}

// PickleTableCell is a cell of a PickleTableRow.
type PickleTableCell struct {
	Value string `json:"value"`
}

// PickleTag is a tag inherited by a pickle from any enclosing node.
type PickleTag struct {
	Name      string `json:"name"`
	AstNodeID string `json:"astNodeId"`
}

// ReferencedIDs returns every AST node id referenced by the pickle and its
// steps and tags.
func (p *Pickle) ReferencedIDs() []string {
	out := append([]string(nil), p.AstNodeIDs...)
	for _, s := range p.Steps {
		out = append(out, s.AstNodeIDs...)
	}
	for _, t := range p.Tags {
		out = append(out, t.AstNodeID)
	}
	return out
}
