package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cukemsg/internal/ids"
)

//go:embed schema.cue
var schemaSource string

type options struct {
	path    string
	dir     string
	environ []string
	now     func() time.Time
}

// Option configures Load.
type Option func(*options)

// WithFile loads path instead of searching for a default file. A missing
// file is an error.
func WithFile(path string) Option {
	return func(o *options) { o.path = path }
}

// WithDir sets the directory searched for DefaultFileNames. Defaults to ".".
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithEnviron replaces os.Environ() as the source of overrides.
// Entries are "KEY=value".
func WithEnviron(environ []string) Option {
	return func(o *options) { o.environ = environ }
}

// WithNow sets the clock {timestamp} resolves against.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// document is the shape shared by the file and CUKEMSG_FORMATTERS.
type document struct {
	Formatters        map[string]*Formatter `json:"formatters,omitempty"`
	IDGenerationStyle string                `json:"idGenerationStyle,omitempty"`
}

// Load resolves the configuration from file and environment.
func Load(opts ...Option) (*Config, error) {
	o := options{dir: ".", now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.environ == nil {
		o.environ = os.Environ()
	}
	env := environMap(o.environ)

	l := newLoader()
	cfg := &Config{
		Formatters:        map[string]Formatter{},
		IDGenerationStyle: ids.StyleUUID,
		now:               o.now(),
		lookup: func(name string) (string, bool) {
			v, ok := env[name]
			return v, ok
		},
	}

	path, err := findFile(o.path, o.dir)
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		doc, err := l.parse(path, data)
		if err != nil {
			return nil, err
		}
		if err := cfg.apply(path, doc); err != nil {
			return nil, err
		}
		cfg.Source = path
	}

	if raw, ok := env[EnvFormatters]; ok && strings.TrimSpace(raw) != "" {
		doc, err := l.parse(EnvFormatters+".json", []byte(raw))
		if err != nil {
			return nil, err
		}
		if err := cfg.apply(EnvFormatters, doc); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyKeyValueEnv(env); err != nil {
		return nil, err
	}
	for name, f := range cfg.Formatters {
		if err := l.validateFormatter(name, f); err != nil {
			return nil, err
		}
	}

	if raw, ok := env[EnvFormattersDisabled]; ok && raw != "" {
		disabled, err := parseBool(raw)
		if err != nil {
			return nil, &Error{Source: EnvFormattersDisabled, Field: "disabled", Message: err.Error()}
		}
		cfg.Disabled = disabled
	}

	if raw, ok := env[EnvIDGenerationStyle]; ok && raw != "" {
		style, err := ids.ParseStyle(raw)
		if err != nil {
			return nil, &Error{Source: EnvIDGenerationStyle, Field: "idGenerationStyle", Message: err.Error()}
		}
		cfg.IDGenerationStyle = style
	}

	return cfg, nil
}

func findFile(path, dir string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}
	for _, name := range DefaultFileNames {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		if !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

// apply merges doc into c. Formatter entries replace earlier entries of
// the same name wholesale; null entries remove them.
func (c *Config) apply(source string, doc *document) error {
	for name, f := range doc.Formatters {
		key := strings.ToLower(name)
		if f == nil {
			delete(c.Formatters, key)
			continue
		}
		c.Formatters[key] = *f
	}
	if doc.IDGenerationStyle != "" {
		style, err := ids.ParseStyle(doc.IDGenerationStyle)
		if err != nil {
			return &Error{Source: source, Field: "idGenerationStyle", Message: err.Error()}
		}
		c.IDGenerationStyle = style
	}
	return nil
}

type loader struct {
	ctx       *cue.Context
	config    cue.Value
	formatter cue.Value
}

func newLoader() *loader {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	return &loader{
		ctx:       ctx,
		config:    schema.LookupPath(cue.ParsePath("#Config")),
		formatter: schema.LookupPath(cue.ParsePath("#Formatter")),
	}
}

// parse compiles data according to the extension of name, unifies it with
// #Config and decodes the result.
func (l *loader) parse(name string, data []byte) (*document, error) {
	var v cue.Value
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".cue":
		v = l.ctx.CompileBytes(data, cue.Filename(name))
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &Error{Source: name, Field: "yaml", Message: err.Error()}
		}
		if raw == nil {
			raw = map[string]any{}
		}
		v = l.ctx.Encode(raw)
	default:
		return nil, &Error{Source: name, Field: "file", Message: "unsupported config format (want .json, .yaml or .cue)"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(name, err)
	}

	unified := l.config.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(name, err)
	}

	var doc document
	if err := unified.Decode(&doc); err != nil {
		return nil, formatCUEError(name, err)
	}
	return &doc, nil
}

func (l *loader) validateFormatter(name string, f Formatter) error {
	v := l.formatter.Unify(l.ctx.Encode(f))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		e := formatCUEError(EnvFormatterPrefix+strings.ToUpper(name), err)
		var cfgErr *Error
		if errors.As(e, &cfgErr) {
			cfgErr.Field = name + "." + cfgErr.Field
		}
		return e
	}
	return nil
}

func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}
