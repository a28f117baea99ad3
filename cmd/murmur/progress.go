package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"murmur/internal/batch"
	"murmur/internal/logging"
	"murmur/internal/services"
)

// progressView renders batch progress. On a terminal the current file's line
// is redrawn in place; elsewhere a line is printed per phase change or 10%
// step so logs stay readable.
type progressView struct {
	mu       sync.Mutex
	progress io.Writer
	results  io.Writer
	total    int
	show     bool
	live     bool
	colorize bool
	verbose  bool

	sampler   *logging.ProgressSampler
	names     map[int]string
	lineWidth int
}

type progressViewOptions struct {
	Total    int
	Show     bool
	Live     bool
	Colorize bool
	Verbose  bool
}

func newProgressView(progress, results io.Writer, opts progressViewOptions) *progressView {
	return &progressView{
		progress: progress,
		results:  results,
		total:    opts.Total,
		show:     opts.Show,
		live:     opts.Live,
		colorize: opts.Colorize,
		verbose:  opts.Verbose,
		sampler:  logging.NewProgressSampler(0.1),
		names:    make(map[int]string),
	}
}

// update implements batch.Observer.
func (v *progressView) update(index int, fraction float64, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.show {
		return
	}
	name := v.names[index]
	line := fmt.Sprintf("[%d/%d] %s %3d%% %s", index+1, v.total, name, percent(fraction), message)
	if v.live {
		pad := ""
		if n := v.lineWidth - len(line); n > 0 {
			pad = strings.Repeat(" ", n)
		}
		fmt.Fprintf(v.progress, "\r%s%s", line, pad)
		v.lineWidth = len(line)
		return
	}
	if v.sampler.ShouldLog(fraction, message) {
		fmt.Fprintln(v.progress, line)
	}
}

// item implements batch.ItemObserver.
func (v *progressView) item(index int, item batch.Item) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch item.Status {
	case batch.StatusProcessing:
		v.names[index] = filepath.Base(item.Path)
		v.sampler.Reset()
		return
	case batch.StatusDone, batch.StatusError, batch.StatusCancelled:
	default:
		return
	}
	v.clearLine()
	fmt.Fprintln(v.results, v.resultLine(item))
}

func (v *progressView) resultLine(item batch.Item) string {
	name := filepath.Base(item.Path)
	switch item.Status {
	case batch.StatusDone:
		return v.paint(ansiGreen, fmt.Sprintf("✓ %s → %s", name, item.Output))
	case batch.StatusCancelled:
		return v.paint(ansiYellow, fmt.Sprintf("- %s: cancelled", name))
	default:
		return v.paint(ansiRed, fmt.Sprintf("✗ %s: %s", name, errorText(item.Err, v.verbose)))
	}
}

// finish leaves the cursor on a clean line.
func (v *progressView) finish() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clearLine()
}

func (v *progressView) clearLine() {
	if !v.live || v.lineWidth == 0 {
		return
	}
	fmt.Fprintf(v.progress, "\r%s\r", strings.Repeat(" ", v.lineWidth))
	v.lineWidth = 0
}

func (v *progressView) paint(color, text string) string {
	if !v.colorize {
		return text
	}
	return color + text + ansiReset
}

func percent(fraction float64) int {
	switch {
	case fraction <= 0:
		return 0
	case fraction >= 1:
		return 100
	default:
		return int(fraction * 100)
	}
}

// errorText is the stable description of err, or the full wrapped chain when
// verbose.
func errorText(err error, verbose bool) string {
	if err == nil {
		return ""
	}
	if verbose {
		return err.Error()
	}
	return services.Describe(err)
}
