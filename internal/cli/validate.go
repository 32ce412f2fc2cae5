package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cukemsg/internal/messages"
)

// maxIssues caps how many issues are reported for one stream.
const maxIssues = 100

// ValidationError is one problem found in a message stream.
type ValidationError struct {
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s", e.Code, e.Line, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Envelopes int               `json:"envelopes"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <messages.ndjson>",
		Short: "Validate an NDJSON message stream",
		Long: `Validate a Cucumber Messages NDJSON stream.

Every line must decode to an envelope holding exactly one message, ids
must be unique, and every reference (pickle to AST node, test case to
pickle, step events to their test case) must point at an earlier message.

Exit codes:
  0 - Stream valid
  1 - Stream invalid
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newOutput(opts, cmd)

	f, err := os.Open(path)
	if err != nil {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("cannot open %s", path), err.Error())
	}
	defer f.Close()

	formatter.VerboseLog("Validating %s", path)
	result, err := ValidateStream(f)
	if err != nil {
		return outputValidateError(formatter, ErrCodeGeneric, fmt.Sprintf("cannot read %s", path), err.Error())
	}
	formatter.VerboseLog("Read %d envelope(s)", result.Envelopes)

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateStream decodes and checks every envelope in r. Decoding carries
// on past malformed lines. The error is only set when r cannot be read.
func ValidateStream(r io.Reader) (ValidationResult, error) {
	dec := messages.NewDecoder(r)
	checker := messages.NewChecker()
	result := ValidationResult{}
	lastBad := -1

	for {
		e, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		var decErr *messages.DecodeError
		if errors.As(err, &decErr) {
			// A read failure leaves the line number where it was.
			if decErr.Line == lastBad {
				return result, decErr
			}
			lastBad = decErr.Line
			result.Errors = append(result.Errors, ValidationError{
				Code:    ErrCodeStream,
				Line:    decErr.Line,
				Message: decErr.Err.Error(),
			})
			continue
		}
		if err != nil {
			return result, err
		}
		result.Envelopes++
		checker.Add(dec.Line(), e)
	}

	for _, issue := range checker.Issues() {
		result.Errors = append(result.Errors, ValidationError{
			Code:    ErrCodeReference,
			Line:    issue.Line,
			Kind:    issue.Kind,
			Message: issue.Message,
		})
	}
	if result.Envelopes == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Code:    ErrCodeStream,
			Message: "stream holds no envelopes",
		})
	}
	result.Valid = len(result.Errors) == 0
	return result, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Stream valid (%d envelopes)\n", result.Envelopes)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every issue found in the stream.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	total := len(result.Errors)
	if total > maxIssues {
		result.Errors = result.Errors[:maxIssues]
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.Errors[0].Code,
				Message: result.Errors[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", total))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range result.Errors {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}
	if total > maxIssues {
		fmt.Fprintf(formatter.Writer, "... and %d more\n", total-maxIssues)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", total))
}
