package formatter

import (
	"log/slog"
	"path/filepath"

	"github.com/roach88/cukemsg/internal/config"
)

// Formatter names accepted in configuration.
const (
	NameMessage     = "message"
	NameHTML        = "html"
	NameFeatureFile = "featurefile"
	NameSQLite      = "sqlite"
)

// Default output file names.
const (
	DefaultMessageFile = "cucumber_messages.ndjson"
	DefaultHTMLFile    = "cucumber_report.html"
	DefaultSQLiteFile  = "cucumber_messages.db"
)

// Build creates a formatter for every configured formatter with a known
// name, in name order. Unknown names are logged and skipped. Returns nil
// when cfg is not enabled. The formatters are not launched.
func Build(cfg *config.Config, logger *slog.Logger) []*Formatter {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled() {
		return nil
	}

	var out []*Formatter
	for _, name := range cfg.Names() {
		settings, _ := cfg.Formatter(name)

		target := newTarget(name, settings)
		if target == nil {
			logger.Warn("unknown formatter, skipping", "formatter", name)
			continue
		}

		handling, err := ParseAttachmentHandling(settings.AttachmentHandling)
		if err != nil {
			logger.Warn("invalid attachment handling, using Embed", "formatter", name, "error", err)
		}

		out = append(out, New(name, target,
			WithLogger(logger),
			WithAttachments(handling, settings.ExternalAttachmentsStoragePath),
		))
	}
	return out
}

func newTarget(name string, settings config.Formatter) Target {
	switch name {
	case NameMessage:
		return NewMessageTarget(OutputPath(settings.OutputFilePath, DefaultMessageFile, extOr(settings.Extension, ".ndjson")))
	case NameHTML:
		return NewHTMLTarget(OutputPath(settings.OutputFilePath, DefaultHTMLFile, extOr(settings.Extension, ".html")))
	case NameSQLite:
		return NewSQLiteTarget(OutputPath(settings.OutputFilePath, DefaultSQLiteFile, extOr(settings.Extension, ".db")))
	case NameFeatureFile:
		dir := settings.OutputFilePath
		if dir == "" {
			dir = "."
		}
		return NewFeatureFileTarget(filepath.Clean(dir), settings.Extension)
	}
	return nil
}

func extOr(ext, def string) string {
	if ext != "" {
		return ext
	}
	return def
}
