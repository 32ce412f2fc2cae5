package testutil

import (
	"github.com/roach88/cukemsg/internal/gherkin"
	"github.com/roach88/cukemsg/internal/messages"
)

// CalculatorSource is the feature text CalculatorDocument was parsed from.
const CalculatorSource = `@math
Feature: Calculator
  Background:
    Given a calculator
  Scenario: Add
    When I add 1 and 2
    Then the result is 3
  Rule: Division
    Scenario Outline: Divide
      When I divide <a> by <b>
      Then the result is <c>
      Examples:
        | a | b | c |
        | 6 | 3 | 2 |
        | 9 | 3 | 3 |
`

func keyword(k messages.StepKeywordType) *messages.StepKeywordType { return &k }

func at(line, col int64) *gherkin.Location {
	return &gherkin.Location{Line: line, Column: col}
}

// CalculatorDocument returns a parsed feature with no ids and some
// locations missing, the shape a parser hands over before conversion.
// It compiles to three pickles.
func CalculatorDocument() gherkin.Document {
	return gherkin.Document{
		URI:    "features/calculator.feature",
		Source: CalculatorSource,
		Feature: &gherkin.Feature{
			Location: at(2, 1),
			Tags:     []gherkin.Tag{{Name: "@math", Location: at(1, 1)}},
			Language: "en",
			Keyword:  "Feature",
			Name:     "Calculator",
			Children: []gherkin.Child{
				&gherkin.Background{
					Location: at(3, 3),
					Keyword:  "Background",
					Steps: []gherkin.Step{
						{Location: at(4, 5), Keyword: "Given ", KeywordType: keyword(messages.KeywordTypeContext), Text: "a calculator"},
					},
				},
				&gherkin.Scenario{
					Location: at(5, 3),
					Keyword:  "Scenario",
					Name:     "Add",
					Steps: []gherkin.Step{
						{Location: at(6, 5), Keyword: "When ", KeywordType: keyword(messages.KeywordTypeAction), Text: "I add 1 and 2"},
						{Keyword: "Then ", KeywordType: keyword(messages.KeywordTypeOutcome), Text: "the result is 3"},
					},
				},
				&gherkin.Rule{
					Location: at(8, 3),
					Keyword:  "Rule",
					Name:     "Division",
					Children: []gherkin.Child{
						&gherkin.ScenarioOutline{
							Keyword: "Scenario Outline",
							Name:    "Divide",
							Steps: []gherkin.Step{
								{Keyword: "When ", KeywordType: keyword(messages.KeywordTypeAction), Text: "I divide <a> by <b>"},
								{Keyword: "Then ", KeywordType: keyword(messages.KeywordTypeOutcome), Text: "the result is <c>"},
							},
							Examples: []gherkin.Examples{{
								Keyword:     "Examples",
								TableHeader: &gherkin.TableRow{Cells: []gherkin.TableCell{{Value: "a"}, {Value: "b"}, {Value: "c"}}},
								TableBody: []gherkin.TableRow{
									{Location: at(14, 9), Cells: []gherkin.TableCell{{Value: "6"}, {Value: "3"}, {Value: "2"}}},
									{Location: at(15, 9), Cells: []gherkin.TableCell{{Value: "9"}, {Value: "3"}, {Value: "3"}}},
								},
							}},
						},
					},
				},
			},
		},
	}
}

// CalculatorNodeCount is the number of ids ToProtocolDocument assigns to
// CalculatorDocument: tag, background, step, scenario, 2 steps, rule,
// outline, 2 steps, examples, header row, 2 body rows.
const CalculatorNodeCount = 14
