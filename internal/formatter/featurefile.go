package formatter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cukemsg/internal/messages"
)

// DefaultFeatureFileExtension is used when no extension is configured.
const DefaultFeatureFileExtension = ".ndjson"

// FeatureFileTarget writes one NDJSON file per feature under a directory.
// A feature's file is created on its first envelope and closed by its
// close sentinel. Run-level envelopes (empty feature) are not written.
type FeatureFileTarget struct {
	dir string
	ext string

	files map[string]*featureFile
}

type featureFile struct {
	file *os.File
	buf  *bufio.Writer
	w    *messages.Writer
}

func (f *featureFile) close() error {
	return errors.Join(f.buf.Flush(), f.file.Close())
}

// NewFeatureFileTarget returns a target writing under dir.
func NewFeatureFileTarget(dir, ext string) *FeatureFileTarget {
	if ext == "" {
		ext = DefaultFeatureFileExtension
	}
	return &FeatureFileTarget{dir: dir, ext: ext, files: map[string]*featureFile{}}
}

// Path returns the file a feature is written to.
func (t *FeatureFileTarget) Path(feature string) string {
	return filepath.Join(t.dir, FeatureKey(feature)+t.ext)
}

// OpenFeatures returns the number of features with an open file.
func (t *FeatureFileTarget) OpenFeatures() int { return len(t.files) }

func (t *FeatureFileTarget) Open(context.Context) error {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

func (t *FeatureFileTarget) Write(_ context.Context, msg messages.Tagged) error {
	if msg.Feature == "" {
		return nil
	}
	key := FeatureKey(msg.Feature)

	if msg.IsCloseSentinel() {
		ff, ok := t.files[key]
		if !ok {
			return nil
		}
		delete(t.files, key)
		return ff.close()
	}

	ff, ok := t.files[key]
	if !ok {
		file, err := os.Create(filepath.Join(t.dir, key+t.ext))
		if err != nil {
			return fmt.Errorf("create feature file: %w", err)
		}
		buf := bufio.NewWriter(file)
		ff = &featureFile{file: file, buf: buf, w: messages.NewWriter(buf)}
		t.files[key] = ff
	}
	if err := ff.w.Write(msg.Envelope); err != nil {
		return err
	}
	return ff.buf.Flush()
}

// Close closes every feature still open.
func (t *FeatureFileTarget) Close() error {
	var errs []error
	for key, ff := range t.files {
		errs = append(errs, ff.close())
		delete(t.files, key)
	}
	return errors.Join(errs...)
}

var unsafeFileChars = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// FeatureKey turns a feature name into a file name stem. Names are NFC
// normalised so visually equal names share a file.
func FeatureKey(feature string) string {
	key := strings.TrimSpace(unsafeFileChars.Replace(norm.NFC.String(feature)))
	if key == "" || key == "." || key == ".." {
		return "_"
	}
	return key
}
