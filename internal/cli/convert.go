package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/cukemsg/internal/convert"
	"github.com/roach88/cukemsg/internal/gherkin"
	"github.com/roach88/cukemsg/internal/ids"
	"github.com/roach88/cukemsg/internal/messages"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Output  string
	IDStyle string
}

// ConvertResult summarises a convert run written to a file.
type ConvertResult struct {
	Output    string `json:"output"`
	Documents int    `json:"documents"`
	Pickles   int    `json:"pickles"`
	Envelopes int    `json:"envelopes"`
}

func (r ConvertResult) String() string {
	return fmt.Sprintf("Wrote %d envelope(s) for %d document(s) and %d pickle(s) to %s",
		r.Envelopes, r.Documents, r.Pickles, r.Output)
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <document>...",
		Short: "Convert Gherkin document trees to NDJSON messages",
		Long: `Convert one or more Gherkin document trees (YAML or JSON) into
Source, GherkinDocument and Pickle envelopes.

All documents share one id generator, so ids are unique across the output.
Envelopes go to stdout unless --output is given.

Examples:
  cukemsg convert features/calculator.yaml
  cukemsg convert a.yaml b.yaml --id-style INCREMENTING -o messages.ndjson`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write envelopes to file instead of stdout")
	cmd.Flags().StringVar(&opts.IDStyle, "id-style", ids.StyleUUID.String(), "id generation style (UUID|INCREMENTING)")

	return cmd
}

func runConvert(opts *ConvertOptions, paths []string, cmd *cobra.Command) error {
	out := newOutput(opts.RootOptions, cmd)

	style, err := ids.ParseStyle(opts.IDStyle)
	if err != nil {
		_ = out.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid id style", err)
	}

	docs := make([]gherkin.Document, 0, len(paths))
	for _, p := range paths {
		out.VerboseLog("Loading %s", p)
		doc, err := gherkin.LoadFile(p)
		if err != nil {
			_ = out.Error(ErrCodeInvalidInput, fmt.Sprintf("cannot load %s", p), err.Error())
			return WrapExitError(ExitCommandError, "failed to load document", err)
		}
		docs = append(docs, doc)
	}

	var w io.Writer = cmd.OutOrStdout()
	var file *os.File
	if opts.Output != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
			return WrapExitError(ExitCommandError, "failed to create output directory", err)
		}
		file, err = os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer file.Close()
		w = file
	}

	bw := bufio.NewWriter(w)
	result, err := writeConverted(bw, convert.New(ids.New(style), nil), docs)
	if err != nil {
		return WrapExitError(ExitFailure, "conversion failed", err)
	}
	if err := bw.Flush(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	if file == nil {
		return nil
	}
	if err := file.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to close output file", err)
	}
	result.Output = opts.Output
	return out.Success(result)
}

func writeConverted(w io.Writer, conv *convert.Converter, docs []gherkin.Document) (ConvertResult, error) {
	mw := messages.NewWriter(w)
	var result ConvertResult
	for _, doc := range docs {
		res, err := conv.Convert(doc)
		if err != nil {
			return result, fmt.Errorf("%s: %w", doc.URI, err)
		}
		if err := mw.Write(messages.NewEnvelope(res.Source)); err != nil {
			return result, err
		}
		if err := mw.Write(messages.NewEnvelope(res.Document)); err != nil {
			return result, err
		}
		for i := range res.Pickles {
			if err := mw.Write(messages.NewEnvelope(&res.Pickles[i])); err != nil {
				return result, err
			}
		}
		result.Documents++
		result.Pickles += len(res.Pickles)
	}
	result.Envelopes = mw.Count()
	return result, nil
}
