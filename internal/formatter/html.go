package formatter

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/roach88/cukemsg/internal/messages"
)

// Template placeholders.
const (
	placeholderCSS      = "{{css}}"
	placeholderMessages = "{{messages}}"
	placeholderScript   = "{{script}}"
)

var (
	//go:embed assets/template.html
	defaultTemplate string
	//go:embed assets/report.css
	defaultCSS string
	//go:embed assets/report.js
	defaultScript string
)

// HTMLTarget writes a self-contained HTML report. Envelopes are embedded
// as a JavaScript array in place of {{messages}}.
type HTMLTarget struct {
	path     string
	template string
	css      string
	script   string

	file    *os.File
	buf     *bufio.Writer
	tail    string
	written int
}

// HTMLOption configures an HTMLTarget.
type HTMLOption func(*HTMLTarget)

// WithTemplate replaces the embedded template and assets.
func WithTemplate(template, css, script string) HTMLOption {
	return func(t *HTMLTarget) {
		t.template = template
		t.css = css
		t.script = script
	}
}

// NewHTMLTarget returns a target writing to path.
func NewHTMLTarget(path string, opts ...HTMLOption) *HTMLTarget {
	t := &HTMLTarget{
		path:     path,
		template: defaultTemplate,
		css:      defaultCSS,
		script:   defaultScript,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Path returns the output file.
func (t *HTMLTarget) Path() string { return t.path }

// Open writes everything up to the messages placeholder.
func (t *HTMLTarget) Open(context.Context) error {
	head, tail, ok := strings.Cut(t.template, placeholderMessages)
	if !ok {
		return fmt.Errorf("html template has no %s placeholder", placeholderMessages)
	}

	file, err := createFile(t.path)
	if err != nil {
		return err
	}
	t.file = file
	t.buf = bufio.NewWriter(file)
	t.tail = t.expand(tail)

	if _, err := t.buf.WriteString(t.expand(head)); err == nil {
		err = t.buf.Flush()
	}
	if err != nil {
		t.file.Close()
		return fmt.Errorf("write html head: %w", err)
	}
	return nil
}

func (t *HTMLTarget) Write(_ context.Context, msg messages.Tagged) error {
	if msg.IsCloseSentinel() {
		return nil
	}
	data, err := messages.Marshal(msg.Envelope)
	if err != nil {
		return err
	}
	if t.written > 0 {
		if err := t.buf.WriteByte(','); err != nil {
			return err
		}
	}
	if _, err := t.buf.Write(messages.EscapeForHTML(data)); err != nil {
		return err
	}
	t.written++
	return t.buf.Flush()
}

// Close writes the rest of the template.
func (t *HTMLTarget) Close() error {
	_, err := t.buf.WriteString(t.tail)
	return errors.Join(err, t.buf.Flush(), t.file.Close())
}

func (t *HTMLTarget) expand(s string) string {
	return strings.NewReplacer(placeholderCSS, t.css, placeholderScript, t.script).Replace(s)
}
