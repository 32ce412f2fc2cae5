package messages

import "fmt"

// enumTable maps enum ordinals to their wire description strings.
type enumTable struct {
	kind  string
	names []string
}

func (t enumTable) String(v int) string {
	if v < 0 || v >= len(t.names) {
		return fmt.Sprintf("%s(%d)", t.kind, v)
	}
	return t.names[v]
}

func (t enumTable) marshal(v int) ([]byte, error) {
	if v < 0 || v >= len(t.names) {
		return nil, fmt.Errorf("invalid %s value %d", t.kind, v)
	}
	return []byte(t.names[v]), nil
}

// unmarshal matches case-sensitively.
func (t enumTable) unmarshal(text []byte) (int, error) {
	s := string(text)
	for i, n := range t.names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s value %q", t.kind, s)
}

// SourceMediaType is the media type of a Source document.
type SourceMediaType int

const (
	MediaTypeGherkinPlain SourceMediaType = iota
	MediaTypeGherkinMarkdown
)

var sourceMediaTypes = enumTable{"SourceMediaType", []string{
	"text/x.cucumber.gherkin+plain",
	"text/x.cucumber.gherkin+markdown",
}}

func (m SourceMediaType) String() string { return sourceMediaTypes.String(int(m)) }

func (m SourceMediaType) MarshalText() ([]byte, error) { return sourceMediaTypes.marshal(int(m)) }

func (m *SourceMediaType) UnmarshalText(text []byte) error {
	v, err := sourceMediaTypes.unmarshal(text)
	if err != nil {
		return err
	}
	*m = SourceMediaType(v)
	return nil
}

// StepKeywordType classifies a Gherkin step keyword.
type StepKeywordType int

const (
	KeywordTypeUnknown StepKeywordType = iota
	KeywordTypeContext
	KeywordTypeAction
	KeywordTypeOutcome
	KeywordTypeConjunction
)

var stepKeywordTypes = enumTable{"StepKeywordType", []string{
	"Unknown", "Context", "Action", "Outcome", "Conjunction",
}}

func (k StepKeywordType) String() string { return stepKeywordTypes.String(int(k)) }

func (k StepKeywordType) MarshalText() ([]byte, error) { return stepKeywordTypes.marshal(int(k)) }

func (k *StepKeywordType) UnmarshalText(text []byte) error {
	v, err := stepKeywordTypes.unmarshal(text)
	if err != nil {
		return err
	}
	*k = StepKeywordType(v)
	return nil
}

// PickleStepType classifies a pickle step. Conjunctions are resolved to the
// type of the preceding step during compilation.
type PickleStepType int

const (
	PickleStepUnknown PickleStepType = iota
	PickleStepContext
	PickleStepAction
	PickleStepOutcome
)

var pickleStepTypes = enumTable{"PickleStepType", []string{
	"Unknown", "Context", "Action", "Outcome",
}}

func (p PickleStepType) String() string { return pickleStepTypes.String(int(p)) }

func (p PickleStepType) MarshalText() ([]byte, error) { return pickleStepTypes.marshal(int(p)) }

func (p *PickleStepType) UnmarshalText(text []byte) error {
	v, err := pickleStepTypes.unmarshal(text)
	if err != nil {
		return err
	}
	*p = PickleStepType(v)
	return nil
}

// TestStepResultStatus is the outcome of a test step.
type TestStepResultStatus int

const (
	StatusUnknown TestStepResultStatus = iota
	StatusPassed
	StatusSkipped
	StatusPending
	StatusUndefined
	StatusAmbiguous
	StatusFailed
)

var testStepResultStatuses = enumTable{"TestStepResultStatus", []string{
	"UNKNOWN", "PASSED", "SKIPPED", "PENDING", "UNDEFINED", "AMBIGUOUS", "FAILED",
}}

func (s TestStepResultStatus) String() string { return testStepResultStatuses.String(int(s)) }

func (s TestStepResultStatus) MarshalText() ([]byte, error) {
	return testStepResultStatuses.marshal(int(s))
}

func (s *TestStepResultStatus) UnmarshalText(text []byte) error {
	v, err := testStepResultStatuses.unmarshal(text)
	if err != nil {
		return err
	}
	*s = TestStepResultStatus(v)
	return nil
}

// ParseStatus parses a status description such as "PASSED".
func ParseStatus(s string) (TestStepResultStatus, error) {
	var st TestStepResultStatus
	err := st.UnmarshalText([]byte(s))
	return st, err
}

// AttachmentContentEncoding describes how an attachment body is encoded.
type AttachmentContentEncoding int

const (
	EncodingIdentity AttachmentContentEncoding = iota
	EncodingBase64
)

var attachmentEncodings = enumTable{"AttachmentContentEncoding", []string{
	"IDENTITY", "BASE64",
}}

func (e AttachmentContentEncoding) String() string { return attachmentEncodings.String(int(e)) }

func (e AttachmentContentEncoding) MarshalText() ([]byte, error) {
	return attachmentEncodings.marshal(int(e))
}

func (e *AttachmentContentEncoding) UnmarshalText(text []byte) error {
	v, err := attachmentEncodings.unmarshal(text)
	if err != nil {
		return err
	}
	*e = AttachmentContentEncoding(v)
	return nil
}
