package config

import (
	"regexp"
	"strings"
)

// TimestampLayout is the format {timestamp} expands to.
const TimestampLayout = "2006-01-02_15-04-05"

var placeholderPattern = regexp.MustCompile(`\{(timestamp|env:[A-Za-z_][A-Za-z0-9_]*)\}`)

// ResolvePath expands {timestamp} and {env:NAME} in template. Unknown or
// unterminated placeholders are left as written. An unset variable expands
// to "".
func (c *Config) ResolvePath(template string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		if name == "timestamp" {
			return c.now.Format(TimestampLayout)
		}
		v, _ := c.lookupEnv(strings.TrimPrefix(name, "env:"))
		return v
	})
}

func (c *Config) lookupEnv(name string) (string, bool) {
	if c.lookup == nil {
		return "", false
	}
	return c.lookup(name)
}
