package config

import (
	"fmt"
	"slices"
	"strings"
)

// settingKeys maps lower-cased setting names to their canonical form.
var settingKeys = map[string]string{
	"outputfilepath":                 "outputFilePath",
	"attachmenthandling":             "attachmentHandling",
	"externalattachmentsstoragepath": "externalAttachmentsStoragePath",
	"extension":                      "extension",
}

// applyKeyValueEnv applies every CUKEMSG_FORMATTERS_<NAME> variable in
// sorted order so the outcome does not depend on map iteration.
func (c *Config) applyKeyValueEnv(env map[string]string) error {
	var keys []string
	for k := range env {
		if !strings.HasPrefix(k, EnvFormatterPrefix) || k == EnvFormattersDisabled {
			continue
		}
		if len(k) == len(EnvFormatterPrefix) {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		name := strings.ToLower(strings.TrimPrefix(k, EnvFormatterPrefix))
		if err := c.applyFormatterValue(k, name, env[k]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyFormatterValue(source, name, raw string) error {
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		return nil
	case strings.EqualFold(value, "true"):
		if _, ok := c.Formatters[name]; !ok {
			c.Formatters[name] = Formatter{}
		}
		return nil
	case strings.EqualFold(value, "false"):
		delete(c.Formatters, name)
		return nil
	}

	settings, err := parseSettings(value)
	if err != nil {
		return &Error{Source: source, Field: name, Message: err.Error()}
	}
	f := c.Formatters[name]
	for key, v := range settings {
		switch key {
		case "outputFilePath":
			f.OutputFilePath = v
		case "attachmentHandling":
			f.AttachmentHandling = v
		case "externalAttachmentsStoragePath":
			f.ExternalAttachmentsStoragePath = v
		case "extension":
			f.Extension = v
		}
	}
	c.Formatters[name] = f
	return nil
}

// parseSettings parses "key=value;key=value". Keys are case-insensitive
// and both keys and values are trimmed.
func parseSettings(value string) (map[string]string, error) {
	settings := map[string]string{}
	for pair := range strings.SplitSeq(value, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid value %q: want true, false or key=value pairs separated by ';'", value)
		}
		k = strings.TrimSpace(k)
		canonical, known := settingKeys[strings.ToLower(k)]
		if !known {
			return nil, fmt.Errorf("unknown setting %q in %q", k, value)
		}
		settings[canonical] = strings.TrimSpace(v)
	}
	return settings, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}
