// Package convert turns the internal document tree into protocol messages:
// the Source, the GherkinDocument and its Pickles.
//
// A Converter holds one id generator. Documents and the pickles compiled from
// them draw ids from it, so a whole run shares one id namespace and style.
package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/roach88/cukemsg/internal/gherkin"
	"github.com/roach88/cukemsg/internal/ids"
	"github.com/roach88/cukemsg/internal/messages"
	"github.com/roach88/cukemsg/internal/pickles"
)

// ErrMissingID is returned by ToProtocolPickles when a document node has no id.
var ErrMissingID = errors.New("document node has no id")

// UnknownURI is the uri of the placeholder Source emitted when the feature
// text cannot be read.
const UnknownURI = "Unknown"

// Converter maps internal documents to protocol messages.
type Converter struct {
	gen      ids.Generator
	compiler pickles.Compiler
	fsys     fs.FS
	logger   *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithFS reads source text through fsys instead of the OS filesystem.
func WithFS(fsys fs.FS) Option {
	return func(c *Converter) {
		c.fsys = fsys
	}
}

// WithLogger sets the logger used for unreadable sources.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

// New creates a Converter. A nil compiler selects pickles.Default.
func New(gen ids.Generator, compiler pickles.Compiler, opts ...Option) *Converter {
	if compiler == nil {
		compiler = pickles.Default
	}
	c := &Converter{
		gen:      gen,
		compiler: compiler,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generator returns the id generator shared by everything this converter emits.
func (c *Converter) Generator() ids.Generator {
	return c.gen
}

// Result holds the messages describing one feature file.
type Result struct {
	Source   *messages.Source
	Document *messages.GherkinDocument
	Pickles  []messages.Pickle
}

// Convert runs ToProtocolSource, ToProtocolDocument and ToProtocolPickles.
func (c *Converter) Convert(doc gherkin.Document) (*Result, error) {
	pd := c.ToProtocolDocument(doc)
	ps, err := c.ToProtocolPickles(pd)
	if err != nil {
		return nil, err
	}
	return &Result{
		Source:   c.ToProtocolSource(doc),
		Document: pd,
		Pickles:  ps,
	}, nil
}

// ToProtocolSource returns the raw feature text. It uses doc.Source when set
// and otherwise reads doc.URI. An unreadable source yields a placeholder with
// uri "Unknown".
func (c *Converter) ToProtocolSource(doc gherkin.Document) *messages.Source {
	mediaType := mediaTypeOf(doc.URI)
	if doc.Source != "" {
		return &messages.Source{URI: doc.URI, Data: doc.Source, MediaType: mediaType}
	}
	data, err := c.readSource(doc.URI)
	if err != nil {
		c.logger.Warn("source document could not be read", "uri", doc.URI, "error", err)
		return &messages.Source{
			URI:       UnknownURI,
			Data:      fmt.Sprintf("Source Document: %s could not be read.", doc.URI),
			MediaType: messages.MediaTypeGherkinPlain,
		}
	}
	return &messages.Source{URI: doc.URI, Data: string(data), MediaType: mediaType}
}

func (c *Converter) readSource(uri string) ([]byte, error) {
	if uri == "" {
		return nil, errors.New("document has no uri")
	}
	if c.fsys != nil {
		return fs.ReadFile(c.fsys, strings.TrimPrefix(path.Clean(uri), "/"))
	}
	return os.ReadFile(uri)
}

func mediaTypeOf(uri string) messages.SourceMediaType {
	if strings.EqualFold(path.Ext(uri), ".md") {
		return messages.MediaTypeGherkinMarkdown
	}
	return messages.MediaTypeGherkinPlain
}

// ToProtocolPickles compiles doc into pickles whose ids come from the
// converter's generator. Every node of doc must carry an id.
func (c *Converter) ToProtocolPickles(doc *messages.GherkinDocument) ([]messages.Pickle, error) {
	if err := checkIDs(doc); err != nil {
		return nil, err
	}
	ps, err := c.compiler.Compile(doc, c.gen.NewID)
	if err != nil {
		return nil, fmt.Errorf("compile pickles for %s: %w", doc.URI, err)
	}
	if ps == nil {
		ps = []messages.Pickle{}
	}
	return ps, nil
}

func checkIDs(doc *messages.GherkinDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrMissingID)
	}
	for i, id := range doc.AllIDs() {
		if id == "" {
			return fmt.Errorf("%w: node %d of %s", ErrMissingID, i, doc.URI)
		}
	}
	return nil
}
