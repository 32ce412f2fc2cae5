package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/cukemsg/internal/messages"
)

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", event)
	}

	return buf.String()
}

func matchesFeature(event TraceEvent, feature string) bool {
	return feature == "" || event.Feature == feature
}

// assertStreamContains checks that an envelope of the kind was published.
func assertStreamContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Kind == assertion.Kind && matchesFeature(event, assertion.Feature) {
			return nil
		}
	}

	expected := assertion.Kind
	if assertion.Feature != "" {
		expected = fmt.Sprintf("%s in feature %q", assertion.Kind, assertion.Feature)
	}
	return &AssertionError{
		Type:     AssertStreamContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertStreamOrder checks that the first occurrence of each kind appears
// in the given order. Other messages may appear in between.
func assertStreamOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for _, event := range trace {
		if _, seen := positions[event.Kind]; !seen {
			positions[event.Kind] = event.Seq
		}
	}

	for _, kind := range assertion.Kinds {
		if _, ok := positions[kind]; !ok {
			return &AssertionError{
				Type:     AssertStreamOrder,
				Expected: fmt.Sprintf("all kinds present: %v", assertion.Kinds),
				Actual:   fmt.Sprintf("missing kind: %s", kind),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Kinds); i++ {
		prev, curr := assertion.Kinds[i-1], assertion.Kinds[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertStreamOrder,
				Expected: fmt.Sprintf("kinds in order: %v", assertion.Kinds),
				Actual: fmt.Sprintf("%s (seq %d) should be before %s (seq %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertStreamCount checks that the kind appears exactly Count times.
func assertStreamCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Kind == assertion.Kind && matchesFeature(event, assertion.Feature) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertStreamCount,
			Expected: fmt.Sprintf("%s appears %d time(s)", assertion.Kind, assertion.Count),
			Actual:   fmt.Sprintf("appears %d time(s)", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertStepStatuses checks the step results in publish order.
func assertStepStatuses(trace []TraceEvent, assertion Assertion) error {
	var got []string
	for _, event := range trace {
		if event.Envelope != nil && event.Envelope.TestStepFinished != nil {
			got = append(got, event.Envelope.TestStepFinished.TestStepResult.Status.String())
		}
	}

	if !slices.Equal(got, assertion.Statuses) {
		return &AssertionError{
			Type:     AssertStepStatuses,
			Expected: fmt.Sprintf("%v", assertion.Statuses),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertReferencesResolve checks every id reference in the trace.
func assertReferencesResolve(trace []TraceEvent) error {
	checker := messages.NewChecker()
	for _, event := range trace {
		if event.Envelope != nil {
			checker.Add(event.Seq, event.Envelope)
		}
	}

	issues := checker.Issues()
	if len(issues) == 0 {
		return nil
	}
	msgs := make([]string, len(issues))
	for i, issue := range issues {
		msgs[i] = fmt.Sprintf("seq %d: %s", issue.Line, issue.Message)
	}
	return &AssertionError{
		Type:     AssertReferencesResolve,
		Expected: "every reference resolves",
		Actual:   strings.Join(msgs, "; "),
		Trace:    trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStreamContains:
			err = assertStreamContains(result.Trace, assertion)
		case AssertStreamOrder:
			err = assertStreamOrder(result.Trace, assertion)
		case AssertStreamCount:
			err = assertStreamCount(result.Trace, assertion)
		case AssertStepStatuses:
			err = assertStepStatuses(result.Trace, assertion)
		case AssertReferencesResolve:
			err = assertReferencesResolve(result.Trace)
		case AssertRunSuccess:
			if assertion.Success == nil {
				err = fmt.Errorf("assertion[%d]: run_success requires success", i)
			} else if result.Success != *assertion.Success {
				err = &AssertionError{
					Type:     AssertRunSuccess,
					Expected: fmt.Sprintf("success=%t", *assertion.Success),
					Actual:   fmt.Sprintf("success=%t", result.Success),
					Trace:    result.Trace,
				}
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
