package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// layerExtensions is the discovery order for configuration files.
var layerExtensions = []string{".yaml", ".yml", ".toml", ".json"}

// Settings is one configuration layer. A nil field means the layer does not
// set that key.
type Settings struct {
	Language      *string `yaml:"language,omitempty" toml:"language" json:"language,omitempty"`
	Format        *string `yaml:"format,omitempty" toml:"format" json:"format,omitempty"`
	OnDevice      *bool   `yaml:"onDevice,omitempty" toml:"onDevice" json:"onDevice,omitempty"`
	OutputDir     *string `yaml:"outputDir,omitempty" toml:"outputDir" json:"outputDir,omitempty"`
	Verbose       *bool   `yaml:"verbose,omitempty" toml:"verbose" json:"verbose,omitempty"`
	ShowProgress  *bool   `yaml:"showProgress,omitempty" toml:"showProgress" json:"showProgress,omitempty"`
	NoColor       *bool   `yaml:"noColor,omitempty" toml:"noColor" json:"noColor,omitempty"`
	Engine        *string `yaml:"engine,omitempty" toml:"engine" json:"engine,omitempty"`
	EngineCommand *string `yaml:"engineCommand,omitempty" toml:"engineCommand" json:"engineCommand,omitempty"`
	Model         *string `yaml:"model,omitempty" toml:"model" json:"model,omitempty"`
	LogFormat     *string `yaml:"logFormat,omitempty" toml:"logFormat" json:"logFormat,omitempty"`
	History       *bool   `yaml:"history,omitempty" toml:"history" json:"history,omitempty"`
}

// Merge returns s overlaid with every non-nil field of next. The receiver and
// argument are left untouched.
func (s Settings) Merge(next Settings) Settings {
	return Settings{
		Language:      overlay(s.Language, next.Language),
		Format:        overlay(s.Format, next.Format),
		OnDevice:      overlay(s.OnDevice, next.OnDevice),
		OutputDir:     overlay(s.OutputDir, next.OutputDir),
		Verbose:       overlay(s.Verbose, next.Verbose),
		ShowProgress:  overlay(s.ShowProgress, next.ShowProgress),
		NoColor:       overlay(s.NoColor, next.NoColor),
		Engine:        overlay(s.Engine, next.Engine),
		EngineCommand: overlay(s.EngineCommand, next.EngineCommand),
		Model:         overlay(s.Model, next.Model),
		LogFormat:     overlay(s.LogFormat, next.LogFormat),
		History:       overlay(s.History, next.History),
	}
}

func overlay[T any](base, next *T) *T {
	if next != nil {
		v := *next
		return &v
	}
	if base != nil {
		v := *base
		return &v
	}
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// effective flattens the layer into a Config. Unset fields take their zero
// value, so callers merge over DefaultSettings first.
func (s Settings) effective() Config {
	return Config{
		Language:      deref(s.Language),
		Format:        deref(s.Format),
		OnDevice:      deref(s.OnDevice),
		OutputDir:     deref(s.OutputDir),
		Verbose:       deref(s.Verbose),
		ShowProgress:  deref(s.ShowProgress),
		NoColor:       deref(s.NoColor),
		Engine:        deref(s.Engine),
		EngineCommand: deref(s.EngineCommand),
		Model:         deref(s.Model),
		LogFormat:     deref(s.LogFormat),
		History:       deref(s.History),
	}
}

// Settings reports the effective configuration as a fully populated layer.
func (c Config) Settings() Settings {
	return Settings{
		Language:      ptr(c.Language),
		Format:        ptr(c.Format),
		OnDevice:      ptr(c.OnDevice),
		OutputDir:     ptr(c.OutputDir),
		Verbose:       ptr(c.Verbose),
		ShowProgress:  ptr(c.ShowProgress),
		NoColor:       ptr(c.NoColor),
		Engine:        ptr(c.Engine),
		EngineCommand: ptr(c.EngineCommand),
		Model:         ptr(c.Model),
		LogFormat:     ptr(c.LogFormat),
		History:       ptr(c.History),
	}
}

// LoadFile reads a single configuration layer. The decoder is chosen by file
// extension; unknown keys are ignored.
func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, invalid("read "+path, err)
	}
	settings, err := DecodeSettings(filepath.Ext(path), data)
	if err != nil {
		return Settings{}, invalid("parse "+path, err)
	}
	return settings, nil
}

// DecodeSettings parses raw layer content for the given extension.
func DecodeSettings(ext string, data []byte) (Settings, error) {
	var settings Settings
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if len(bytes.TrimSpace(data)) == 0 {
			return settings, nil
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	case ".json":
		if err := json.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	default:
		return Settings{}, fmt.Errorf("unsupported config extension %q", ext)
	}
	return settings, nil
}

// EncodeYAML renders the effective configuration in the layer format used by
// config files, for display and for seeding new files.
func (c Config) EncodeYAML() ([]byte, error) {
	settings := c.Settings()
	if strings.TrimSpace(c.OutputDir) == "" {
		settings.OutputDir = nil
	}
	if strings.TrimSpace(c.EngineCommand) == "" {
		settings.EngineCommand = nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
