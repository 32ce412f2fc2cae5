package messages

import (
	"errors"
	"fmt"
)

// ErrEmptyEnvelope is returned when an envelope carries no payload.
var ErrEmptyEnvelope = errors.New("envelope has no payload")

// Payload is implemented by every message type an Envelope can carry.
// The interface is sealed: only types in this package implement it.
type Payload interface {
	isPayload()
}

func (*Source) isPayload()             {}
func (*GherkinDocument) isPayload()    {}
func (*Pickle) isPayload()             {}
func (*Meta) isPayload()               {}
func (*TestRunStarted) isPayload()     {}
func (*TestCase) isPayload()           {}
func (*TestCaseStarted) isPayload()    {}
func (*TestStepStarted) isPayload()    {}
func (*TestStepFinished) isPayload()   {}
func (*TestCaseFinished) isPayload()   {}
func (*Attachment) isPayload()         {}
func (*ExternalAttachment) isPayload() {}
func (*TestRunFinished) isPayload()    {}

// Envelope wraps exactly one protocol message.
//
// Envelopes are built with NewEnvelope and must not be mutated afterwards:
// the same pointer is handed to every formatter concurrently.
type Envelope struct {
	Attachment         *Attachment         `json:"attachment,omitempty"`
	ExternalAttachment *ExternalAttachment `json:"externalAttachment,omitempty"`
	GherkinDocument    *GherkinDocument    `json:"gherkinDocument,omitempty"`
	Meta               *Meta               `json:"meta,omitempty"`
	Pickle             *Pickle             `json:"pickle,omitempty"`
	Source             *Source             `json:"source,omitempty"`
	TestCase           *TestCase           `json:"testCase,omitempty"`
	TestCaseFinished   *TestCaseFinished   `json:"testCaseFinished,omitempty"`
	TestCaseStarted    *TestCaseStarted    `json:"testCaseStarted,omitempty"`
	TestRunFinished    *TestRunFinished    `json:"testRunFinished,omitempty"`
	TestRunStarted     *TestRunStarted     `json:"testRunStarted,omitempty"`
	TestStepFinished   *TestStepFinished   `json:"testStepFinished,omitempty"`
	TestStepStarted    *TestStepStarted    `json:"testStepStarted,omitempty"`
}

// NewEnvelope wraps a payload.
// Panics on a nil payload; a nil pointer of a concrete type is equally invalid.
func NewEnvelope(p Payload) *Envelope {
	e := &Envelope{}
	switch v := p.(type) {
	case *Source:
		e.Source = v
	case *GherkinDocument:
		e.GherkinDocument = v
	case *Pickle:
		e.Pickle = v
	case *Meta:
		e.Meta = v
	case *TestRunStarted:
		e.TestRunStarted = v
	case *TestCase:
		e.TestCase = v
	case *TestCaseStarted:
		e.TestCaseStarted = v
	case *TestStepStarted:
		e.TestStepStarted = v
	case *TestStepFinished:
		e.TestStepFinished = v
	case *TestCaseFinished:
		e.TestCaseFinished = v
	case *Attachment:
		e.Attachment = v
	case *ExternalAttachment:
		e.ExternalAttachment = v
	case *TestRunFinished:
		e.TestRunFinished = v
	default:
		panic(fmt.Sprintf("messages: unsupported payload %T", p))
	}
	if e.Content() == nil {
		panic("messages: nil payload")
	}
	return e
}

// payloads lists every payload slot with its wire name, in a fixed order.
func (e *Envelope) payloads() []namedPayload {
	return []namedPayload{
		{"attachment", e.Attachment != nil, e.Attachment},
		{"externalAttachment", e.ExternalAttachment != nil, e.ExternalAttachment},
		{"gherkinDocument", e.GherkinDocument != nil, e.GherkinDocument},
		{"meta", e.Meta != nil, e.Meta},
		{"pickle", e.Pickle != nil, e.Pickle},
		{"source", e.Source != nil, e.Source},
		{"testCase", e.TestCase != nil, e.TestCase},
		{"testCaseFinished", e.TestCaseFinished != nil, e.TestCaseFinished},
		{"testCaseStarted", e.TestCaseStarted != nil, e.TestCaseStarted},
		{"testRunFinished", e.TestRunFinished != nil, e.TestRunFinished},
		{"testRunStarted", e.TestRunStarted != nil, e.TestRunStarted},
		{"testStepFinished", e.TestStepFinished != nil, e.TestStepFinished},
		{"testStepStarted", e.TestStepStarted != nil, e.TestStepStarted},
	}
}

type namedPayload struct {
	name    string
	set     bool
	payload Payload
}

// Content returns the payload, or nil for an empty envelope.
func (e *Envelope) Content() Payload {
	if e == nil {
		return nil
	}
	for _, p := range e.payloads() {
		if p.set {
			return p.payload
		}
	}
	return nil
}

// Kind returns the wire name of the payload ("pickle", "testRunFinished", ...)
// or "" for an empty envelope.
func (e *Envelope) Kind() string {
	if e == nil {
		return ""
	}
	for _, p := range e.payloads() {
		if p.set {
			return p.name
		}
	}
	return ""
}

// Validate reports an error unless exactly one payload is set.
func (e *Envelope) Validate() error {
	if e == nil {
		return ErrEmptyEnvelope
	}
	var set []string
	for _, p := range e.payloads() {
		if p.set {
			set = append(set, p.name)
		}
	}
	switch len(set) {
	case 0:
		return ErrEmptyEnvelope
	case 1:
		return nil
	default:
		return fmt.Errorf("envelope has %d payloads %v, want exactly one", len(set), set)
	}
}

// Tagged routes an envelope to the feature it belongs to.
//
// A nil Envelope is the close sentinel: no more messages will follow for
// Feature. Run-level envelopes carry an empty Feature.
type Tagged struct {
	Feature  string
	Envelope *Envelope
}

// IsCloseSentinel reports whether t signals the end of its feature.
func (t Tagged) IsCloseSentinel() bool {
	return t.Envelope == nil
}

// CloseFeature builds the close sentinel for a feature key.
func CloseFeature(feature string) Tagged {
	return Tagged{Feature: feature}
}
