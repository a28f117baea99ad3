package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"murmur/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	// Level is debug, info, warn, or error. Empty means info.
	Level string
	// Format is console or json. Empty means console.
	Format string
	// Writer receives every record. Nil means stderr.
	Writer io.Writer
	// File, when set, also appends records to this path.
	File string
	// Color enables ANSI level labels in console output.
	Color bool
}

// New constructs a slog logger. Debug level adds the caller's file and line
// to every record.
func New(opts Options) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	w, err := openWriter(opts.Writer, opts.File)
	if err != nil {
		return nil, err
	}
	withSource := level <= slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		return slog.New(newConsoleHandler(w, level, withSource, opts.Color)), nil
	case "json":
		return slog.New(newJSONHandler(w, level, withSource)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig creates a logger from the resolved configuration. Logs go to
// stderr so transcripts on stdout stay clean. Only warnings and errors show
// unless verbose mode lowers the level to debug.
func NewFromConfig(cfg *config.Config, color bool) (*slog.Logger, error) {
	opts := Options{Level: "warn", Color: color}
	if cfg != nil {
		opts.Format = cfg.LogFormat
		opts.Color = color && !cfg.NoColor
		if cfg.Verbose {
			opts.Level = "debug"
		}
	}
	return New(opts)
}

func parseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level: unsupported value %q", value)
	}
}

func openWriter(base io.Writer, path string) (io.Writer, error) {
	if base == nil {
		base = os.Stderr
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return base, nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	if base == io.Discard {
		return file, nil
	}
	return io.MultiWriter(base, file), nil
}

func newJSONHandler(w io.Writer, level slog.Level, withSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: withSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return attr
			}
			switch attr.Key {
			case slog.TimeKey:
				return slog.String("ts", attr.Value.Time().UTC().Format(time.RFC3339Nano))
			case slog.LevelKey:
				return slog.String("level", strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					return slog.String("caller", fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}
