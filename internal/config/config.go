package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed sample_config.yaml
var sampleConfig string

// Config is the effective configuration: every field carries exactly one
// authoritative value after all layers have been merged.
type Config struct {
	Language      string
	Format        string
	OnDevice      bool
	OutputDir     string
	Verbose       bool
	ShowProgress  bool
	NoColor       bool
	Engine        string
	EngineCommand string
	Model         string
	LogFormat     string
	History       bool

	// Sources lists the configuration files that contributed a layer, lowest
	// priority first.
	Sources []string
	// Skipped lists auto-discovered files that could not be read or parsed and
	// were treated as absent, formatted as "path: reason".
	Skipped []string
}

// ResolveOptions controls where Resolve looks for configuration layers.
type ResolveOptions struct {
	// CustomPath, when set, is the only file layer consulted. It must exist and
	// parse.
	CustomPath string
	// Overrides are applied last (typically command-line flags).
	Overrides Settings
	// HomeDir and WorkDir default to the user's home and the process working
	// directory.
	HomeDir string
	WorkDir string
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/murmur/config.yaml")
}

// Load resolves configuration with no overrides. An empty path triggers
// auto-discovery.
func Load(path string) (*Config, error) {
	return Resolve(ResolveOptions{CustomPath: path})
}

// Resolve merges defaults, discovered or explicit config files, and caller
// overrides into one validated Config.
func Resolve(opts ResolveOptions) (*Config, error) {
	merged := DefaultSettings()
	var sources, skipped []string

	if custom := strings.TrimSpace(opts.CustomPath); custom != "" {
		path, err := ExpandPath(custom)
		if err != nil {
			return nil, invalid("config path", err)
		}
		layer, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		merged = merged.Merge(layer)
		sources = append(sources, path)
	} else {
		homeDir, workDir, err := searchRoots(opts)
		if err != nil {
			return nil, err
		}
		for _, base := range []string{
			filepath.Join(homeDir, ".config", "murmur", "config"),
			filepath.Join(workDir, ".murmur"),
		} {
			path, found := discover(base)
			if !found {
				continue
			}
			layer, err := LoadFile(path)
			if err != nil {
				skipped = append(skipped, fmt.Sprintf("%s: %v", path, err))
				continue
			}
			merged = merged.Merge(layer)
			sources = append(sources, path)
		}
	}

	merged = merged.Merge(opts.Overrides)

	cfg := merged.effective()
	cfg.Sources = sources
	cfg.Skipped = skipped

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func searchRoots(opts ResolveOptions) (string, string, error) {
	homeDir := strings.TrimSpace(opts.HomeDir)
	if homeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", invalid("resolve home directory", err)
		}
		homeDir = home
	}
	workDir := strings.TrimSpace(opts.WorkDir)
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", invalid("resolve working directory", err)
		}
		workDir = wd
	}
	return homeDir, workDir, nil
}

// discover returns the first existing file among base+ext for the supported
// extensions, structured-mapping formats first.
func discover(base string) (string, bool) {
	for _, ext := range layerExtensions {
		candidate := base + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// OutputDirFor returns the directory a transcript for input should be written
// to: the configured output directory, or the input's own directory.
func (c *Config) OutputDirFor(input string) string {
	if strings.TrimSpace(c.OutputDir) != "" {
		return c.OutputDir
	}
	return filepath.Dir(input)
}

// ExpandPath resolves a leading "~" or "~/" to the home directory and
// returns the cleaned absolute path. Empty input stays empty.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", p, err)
		}
		p = home + strings.TrimPrefix(p, "~")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return abs, nil
}

// DefaultDataDir returns the directory used for murmur state such as the run
// history database.
func DefaultDataDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "murmur")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "murmur")
	}
	return filepath.Join(home, ".local", "share", "murmur")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
