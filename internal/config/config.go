// Package config resolves which formatters run and where they write.
//
// Resolution order, later layers winning:
//  1. the config file (cukemsg.json, cukemsg.yaml or cukemsg.cue)
//  2. CUKEMSG_FORMATTERS, a JSON document shaped like the file
//  3. CUKEMSG_FORMATTERS_<NAME>, "true", "false" or "key=value;key=value"
//
// A null formatter entry or a "false" value removes that formatter.
// CUKEMSG_FORMATTERS_DISABLED=true turns every formatter off.
// Every layer is validated against the embedded CUE schema.
package config

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/roach88/cukemsg/internal/ids"
)

// Environment variable names.
const (
	EnvFormatters         = "CUKEMSG_FORMATTERS"
	EnvFormatterPrefix    = "CUKEMSG_FORMATTERS_"
	EnvFormattersDisabled = "CUKEMSG_FORMATTERS_DISABLED"
	EnvIDGenerationStyle  = "CUKEMSG_ID_GENERATION_STYLE"
)

// DefaultFileNames are searched, in order, when no file is named.
var DefaultFileNames = []string{"cukemsg.json", "cukemsg.yaml", "cukemsg.yml", "cukemsg.cue"}

// Formatter holds the settings of one formatter.
type Formatter struct {
	OutputFilePath                 string `json:"outputFilePath,omitempty"`
	AttachmentHandling             string `json:"attachmentHandling,omitempty"`
	ExternalAttachmentsStoragePath string `json:"externalAttachmentsStoragePath,omitempty"`
	Extension                      string `json:"extension,omitempty"`
}

// Config is the resolved configuration.
type Config struct {
	// Formatters is keyed by lower-cased formatter name.
	Formatters        map[string]Formatter
	IDGenerationStyle ids.Style
	// Disabled is set by CUKEMSG_FORMATTERS_DISABLED.
	Disabled bool
	// Source is the config file that was loaded, or "".
	Source string

	now    time.Time
	lookup func(string) (string, bool)
}

// Enabled reports whether at least one formatter is configured and
// formatters are not disabled.
func (c *Config) Enabled() bool {
	return len(c.Formatters) > 0 && !c.Disabled
}

// Names returns the configured formatter names, sorted.
func (c *Config) Names() []string {
	return slices.Sorted(maps.Keys(c.Formatters))
}

// Formatter returns the settings of the named formatter with path
// placeholders resolved. Names are case-insensitive.
func (c *Config) Formatter(name string) (Formatter, bool) {
	f, ok := c.Formatters[strings.ToLower(name)]
	if !ok {
		return Formatter{}, false
	}
	f.OutputFilePath = c.ResolvePath(f.OutputFilePath)
	f.ExternalAttachmentsStoragePath = c.ResolvePath(f.ExternalAttachmentsStoragePath)
	return f, true
}

// Now returns the instant {timestamp} resolves to. It is fixed when the
// configuration is loaded so every path in a run agrees.
func (c *Config) Now() time.Time {
	return c.now
}
