package messages

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxLineSize bounds a single NDJSON line. Embedded attachments can be large.
const maxLineSize = 64 << 20

// Marshal serializes one envelope as a single line of JSON without the
// trailing newline. HTML characters are not escaped.
func Marshal(e *Envelope) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", e.Kind(), err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Unmarshal decodes a single envelope and validates that it carries exactly
// one payload.
func Unmarshal(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &e, nil
}

// EscapeForHTML escapes every '/' as "\/" so a serialized envelope can be
// embedded in a <script> element without terminating it.
func EscapeForHTML(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("/"), []byte(`\/`))
}

// Writer writes envelopes as NDJSON.
//
// The separator is written before every envelope except the first, so the
// stream never ends with a newline. Writer does no buffering of its own; wrap
// the destination in a bufio.Writer and flush per message if needed.
type Writer struct {
	w       io.Writer
	written int
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write serializes and writes one envelope.
func (w *Writer) Write(e *Envelope) error {
	line, err := Marshal(e)
	if err != nil {
		return err
	}
	if w.written > 0 {
		if _, err := w.w.Write([]byte("\n")); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(line); err != nil {
		return err
	}
	w.written++
	return nil
}

// Count returns the number of envelopes written.
func (w *Writer) Count() int {
	return w.written
}

// Decoder reads envelopes from an NDJSON stream. Blank lines are skipped.
type Decoder struct {
	sc   *bufio.Scanner
	line int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	return &Decoder{sc: sc}
}

// Decode returns the next envelope, or io.EOF at the end of the stream.
// Errors carry the 1-based line number.
func (d *Decoder) Decode() (*Envelope, error) {
	for d.sc.Scan() {
		d.line++
		line := bytes.TrimSpace(d.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		e, err := Unmarshal(line)
		if err != nil {
			return nil, &DecodeError{Line: d.line, Err: err}
		}
		return e, nil
	}
	if err := d.sc.Err(); err != nil {
		return nil, &DecodeError{Line: d.line, Err: err}
	}
	return nil, io.EOF
}

// Line returns the number of lines consumed so far.
func (d *Decoder) Line() int {
	return d.line
}

// DecodeAll reads every envelope from r.
func DecodeAll(r io.Reader) ([]*Envelope, error) {
	dec := NewDecoder(r)
	var out []*Envelope
	for {
		e, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}

// DecodeError reports a malformed line in an NDJSON stream.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
