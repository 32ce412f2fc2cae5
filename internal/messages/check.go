package messages

import "fmt"

// Issue is a problem found in a message stream.
type Issue struct {
	Line    int    `json:"line,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

// Checker verifies that a stream's cross-message references resolve.
//
// Envelopes are added in stream order; a reference must point at a message
// seen earlier. Ids must be unique across the whole stream.
//
// A Checker is not safe for concurrent use.
type Checker struct {
	ids          map[string]string // id -> kind that declared it
	astNodes     map[string]bool
	pickles      map[string]bool
	pickleSteps  map[string]bool
	testCases    map[string]bool
	testSteps    map[string]bool
	caseStarts   map[string]bool
	runStartedID string
	runStarted   bool
	runFinished  bool
	issues       []Issue
}

// NewChecker returns an empty Checker.
func NewChecker() *Checker {
	return &Checker{
		ids:         make(map[string]string),
		astNodes:    make(map[string]bool),
		pickles:     make(map[string]bool),
		pickleSteps: make(map[string]bool),
		testCases:   make(map[string]bool),
		testSteps:   make(map[string]bool),
		caseStarts:  make(map[string]bool),
	}
}

// Issues returns every issue found so far, in stream order.
func (c *Checker) Issues() []Issue {
	return c.issues
}

// Add checks one envelope read from line.
func (c *Checker) Add(line int, e *Envelope) {
	if err := e.Validate(); err != nil {
		c.report(line, "", "%v", err)
		return
	}
	kind := e.Kind()
	if c.runFinished {
		c.report(line, kind, "%s after testRunFinished", kind)
	}

	switch {
	case e.GherkinDocument != nil:
		for _, id := range e.GherkinDocument.AllIDs() {
			c.declare(line, kind, id)
			c.astNodes[id] = true
		}

	case e.Pickle != nil:
		p := e.Pickle
		c.declare(line, kind, p.ID)
		c.pickles[p.ID] = true
		for _, s := range p.Steps {
			c.declare(line, kind, s.ID)
			c.pickleSteps[s.ID] = true
		}
		for _, id := range p.ReferencedIDs() {
			c.resolve(line, kind, c.astNodes, "AST node", id)
		}

	case e.TestRunStarted != nil:
		if c.runStarted {
			c.report(line, kind, "second testRunStarted")
		}
		c.runStarted = true
		c.runStartedID = e.TestRunStarted.ID
		if e.TestRunStarted.ID != "" {
			c.declare(line, kind, e.TestRunStarted.ID)
		}

	case e.TestCase != nil:
		tc := e.TestCase
		c.declare(line, kind, tc.ID)
		c.testCases[tc.ID] = true
		c.resolve(line, kind, c.pickles, "pickle", tc.PickleID)
		for _, st := range tc.TestSteps {
			c.declare(line, kind, st.ID)
			c.testSteps[st.ID] = true
			if st.PickleStepID != "" {
				c.resolve(line, kind, c.pickleSteps, "pickle step", st.PickleStepID)
			}
		}
		c.checkRun(line, kind, tc.TestRunStartedID)

	case e.TestCaseStarted != nil:
		tcs := e.TestCaseStarted
		c.declare(line, kind, tcs.ID)
		c.caseStarts[tcs.ID] = true
		c.resolve(line, kind, c.testCases, "test case", tcs.TestCaseID)

	case e.TestStepStarted != nil:
		c.resolve(line, kind, c.caseStarts, "test case started", e.TestStepStarted.TestCaseStartedID)
		c.resolve(line, kind, c.testSteps, "test step", e.TestStepStarted.TestStepID)

	case e.TestStepFinished != nil:
		c.resolve(line, kind, c.caseStarts, "test case started", e.TestStepFinished.TestCaseStartedID)
		c.resolve(line, kind, c.testSteps, "test step", e.TestStepFinished.TestStepID)

	case e.TestCaseFinished != nil:
		c.resolve(line, kind, c.caseStarts, "test case started", e.TestCaseFinished.TestCaseStartedID)

	case e.Attachment != nil:
		c.checkAttachment(line, kind, e.Attachment.TestCaseStartedID, e.Attachment.TestStepID, e.Attachment.TestRunStartedID)

	case e.ExternalAttachment != nil:
		a := e.ExternalAttachment
		c.checkAttachment(line, kind, a.TestCaseStartedID, a.TestStepID, a.TestRunStartedID)

	case e.TestRunFinished != nil:
		if !c.runStarted {
			c.report(line, kind, "testRunFinished without testRunStarted")
		}
		c.checkRun(line, kind, e.TestRunFinished.TestRunStartedID)
		c.runFinished = true
	}
}

func (c *Checker) checkAttachment(line int, kind, caseStartedID, stepID, runStartedID string) {
	if caseStartedID != "" {
		c.resolve(line, kind, c.caseStarts, "test case started", caseStartedID)
	}
	if stepID != "" {
		c.resolve(line, kind, c.testSteps, "test step", stepID)
	}
	c.checkRun(line, kind, runStartedID)
}

func (c *Checker) checkRun(line int, kind, id string) {
	if id == "" {
		return
	}
	if !c.runStarted || id != c.runStartedID {
		c.report(line, kind, "unknown test run started %q", id)
	}
}

func (c *Checker) declare(line int, kind, id string) {
	if id == "" {
		c.report(line, kind, "%s declares an empty id", kind)
		return
	}
	if prev, ok := c.ids[id]; ok {
		c.report(line, kind, "id %q already declared by %s", id, prev)
		return
	}
	c.ids[id] = kind
}

func (c *Checker) resolve(line int, kind string, known map[string]bool, what, id string) {
	if !known[id] {
		c.report(line, kind, "unknown %s %q", what, id)
	}
}

func (c *Checker) report(line int, kind, format string, args ...any) {
	c.issues = append(c.issues, Issue{Line: line, Kind: kind, Message: fmt.Sprintf(format, args...)})
}
