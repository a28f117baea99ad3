package config

import (
	"strings"

	"murmur/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizeLanguage(); err != nil {
		return err
	}
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Engine = strings.ToLower(strings.TrimSpace(c.Engine))
	c.EngineCommand = strings.TrimSpace(c.EngineCommand)
	c.Model = strings.TrimSpace(c.Model)
	c.normalizeLogging()
	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = ""
		return nil
	}
	expanded, err := ExpandPath(strings.TrimSpace(c.OutputDir))
	if err != nil {
		return invalid("outputDir", err)
	}
	c.OutputDir = expanded
	return nil
}

// normalizeLanguage rewrites the language to its canonical BCP-47 form
// (for example "en-us" becomes "en-US").
func (c *Config) normalizeLanguage() error {
	raw := strings.TrimSpace(c.Language)
	if raw == "" {
		return invalidf("language must be set")
	}
	tag, err := language.Canonicalize(raw)
	if err != nil {
		return invalidf("language %q is not a valid BCP-47 tag: %v", raw, err)
	}
	c.Language = tag
	return nil
}

func (c *Config) normalizeLogging() {
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
}
