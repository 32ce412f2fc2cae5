package formatter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/cukemsg/internal/messages"
)

// MessageTarget writes the whole run as one NDJSON file.
type MessageTarget struct {
	path string

	file *os.File
	buf  *bufio.Writer
	w    *messages.Writer
}

// NewMessageTarget returns a target writing to path.
func NewMessageTarget(path string) *MessageTarget {
	return &MessageTarget{path: path}
}

// Path returns the output file.
func (t *MessageTarget) Path() string { return t.path }

func (t *MessageTarget) Open(context.Context) error {
	file, err := createFile(t.path)
	if err != nil {
		return err
	}
	t.file = file
	t.buf = bufio.NewWriter(file)
	t.w = messages.NewWriter(t.buf)
	return nil
}

func (t *MessageTarget) Write(_ context.Context, msg messages.Tagged) error {
	if msg.IsCloseSentinel() {
		return nil
	}
	if err := t.w.Write(msg.Envelope); err != nil {
		return err
	}
	return t.buf.Flush()
}

func (t *MessageTarget) Close() error {
	return errors.Join(t.buf.Flush(), t.file.Close())
}

// createFile creates path and any missing parent directories, truncating
// an existing file.
func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return file, nil
}
