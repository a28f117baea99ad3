package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeFormat = "15:04:05.000"

var levelStyles = []struct {
	min   slog.Level
	label string
	color string
}{
	{slog.LevelError, "ERROR", "\x1b[31m"},
	{slog.LevelWarn, "WARN", "\x1b[33m"},
	{slog.LevelInfo, "INFO", "\x1b[34m"},
	{slog.LevelDebug, "DEBUG", "\x1b[90m"},
}

const ansiReset = "\x1b[0m"

// consoleHandler writes one human-readable line per record:
//
//	15:04:05.000 WARN batch: file failed [runner.go:88] run_id=… file="/a b.wav"
//
// The component attribute becomes the message prefix instead of a key=value
// pair.
type consoleHandler struct {
	out        *lockedWriter
	level      slog.Level
	withSource bool
	color      bool
	component  string
	prefix     string
	preformed  string
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleHandler(w io.Writer, level slog.Level, withSource, color bool) *consoleHandler {
	return &consoleHandler{
		out:        &lockedWriter{w: w},
		level:      level,
		withSource: withSource,
		color:      color,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(ts.Local().Format(consoleTimeFormat))
	b.WriteByte(' ')
	label, color := levelStyle(record.Level)
	if h.color {
		b.WriteString(color + label + ansiReset)
	} else {
		b.WriteString(label)
	}
	b.WriteByte(' ')

	component := h.component
	var attrs strings.Builder
	attrs.WriteString(h.preformed)
	record.Attrs(func(attr slog.Attr) bool {
		if h.prefix == "" && attr.Key == FieldComponent && component == "" {
			component = valueText(attr.Value)
			return true
		}
		appendAttr(&attrs, h.prefix, attr)
		return true
	})

	if component != "" {
		b.WriteString(component)
		b.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	if h.withSource && record.PC != 0 {
		if src, _ := runtime.CallersFrames([]uintptr{record.PC}).Next(); src.File != "" {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	b.WriteString(attrs.String())
	b.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := io.WriteString(h.out.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	var b strings.Builder
	b.WriteString(h.preformed)
	for _, attr := range attrs {
		if h.prefix == "" && attr.Key == FieldComponent {
			clone.component = valueText(attr.Value)
			continue
		}
		appendAttr(&b, h.prefix, attr)
	}
	clone.preformed = b.String()
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// appendAttr writes " key=value", flattening groups into dotted keys.
func appendAttr(b *strings.Builder, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = prefix + attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			appendAttr(b, inner, member)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(attr.Key)
	b.WriteByte('=')
	b.WriteString(quoteIfNeeded(valueText(attr.Value)))
}

func valueText(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func levelStyle(level slog.Level) (string, string) {
	for _, style := range levelStyles {
		if level >= style.min {
			return style.label, style.color
		}
	}
	last := levelStyles[len(levelStyles)-1]
	return last.label, last.color
}
