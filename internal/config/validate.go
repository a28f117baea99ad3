package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"murmur/internal/services"
)

// Validate ensures the configuration is usable. Unrecognized values are
// rejected rather than replaced with defaults.
func (c *Config) Validate() error {
	if !slices.Contains(SupportedFormats, c.Format) {
		return invalidf("format %q is not supported (expected one of %s)", c.Format, strings.Join(SupportedFormats, ", "))
	}
	if strings.TrimSpace(c.Language) == "" {
		return invalidf("language must be set")
	}
	if err := c.validateOutputDir(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return invalidf("logFormat %q is not supported (expected console or json)", c.LogFormat)
	}
	return nil
}

func (c *Config) validateOutputDir() error {
	if c.OutputDir == "" {
		return nil
	}
	if info, err := os.Stat(c.OutputDir); err == nil {
		if !info.IsDir() {
			return invalidf("outputDir %q is not a directory", c.OutputDir)
		}
		return nil
	}
	parent := filepath.Dir(c.OutputDir)
	info, err := os.Stat(parent)
	if err != nil {
		return invalidf("outputDir parent %q does not exist", parent)
	}
	if !info.IsDir() {
		return invalidf("outputDir parent %q is not a directory", parent)
	}
	return nil
}

func (c *Config) validateEngine() error {
	switch c.Engine {
	case EngineWhisperX:
		if c.Model == "" {
			return invalidf("model must be set for the whisperx engine")
		}
	case EngineExec:
		if c.EngineCommand == "" {
			return invalidf("engineCommand must be set when engine is %q", EngineExec)
		}
	default:
		return invalidf("engine %q is not supported (expected %s or %s)", c.Engine, EngineWhisperX, EngineExec)
	}
	return nil
}

func invalid(operation string, err error) error {
	return services.Wrap(services.ErrConfigInvalid, "config", operation, "", err)
}

func invalidf(format string, args ...any) error {
	return services.Wrap(services.ErrConfigInvalid, "config", "validate", fmt.Sprintf(format, args...), nil)
}
