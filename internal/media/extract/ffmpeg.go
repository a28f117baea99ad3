package extract

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"murmur/internal/services"
)

// Executor abstracts command execution for testability. onStdout receives
// each stdout line from a single goroutine.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// TranscoderOption configures the ffmpeg transcoder.
type TranscoderOption func(*FFmpegTranscoder)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) TranscoderOption {
	return func(t *FFmpegTranscoder) {
		if exec != nil {
			t.exec = exec
		}
	}
}

// FFmpegTranscoder drives ffmpeg with machine-readable progress on stdout.
type FFmpegTranscoder struct {
	binary string
	exec   Executor
}

// NewFFmpegTranscoder constructs a transcoder. An empty binary means
// "ffmpeg" from PATH.
func NewFFmpegTranscoder(binary string, opts ...TranscoderOption) *FFmpegTranscoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	t := &FFmpegTranscoder{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Supports reports whether ffmpeg can write the format.
func (t *FFmpegTranscoder) Supports(format Format) bool {
	return format.Valid()
}

// Transcode runs ffmpeg for req.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, req Request, onProgress func(float64)) error {
	if len(req.AudioStreams) == 0 {
		return services.Wrap(services.ErrNoAudioTrack, "extract", "build ffmpeg args", req.Input, nil)
	}
	args := BuildArgs(req)
	parser := progressParser{duration: req.Duration}
	err := t.exec.Run(ctx, t.binary, args, func(line string) {
		if fraction, ok := parser.parse(line); ok && onProgress != nil {
			onProgress(fraction)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrExtractionCancelled, "extract", "ffmpeg", "", ctx.Err())
		}
		return err
	}
	return nil
}

// BuildArgs returns the ffmpeg argument list for req. A single stream is
// mapped directly; several are mixed with amix at equal weights.
func BuildArgs(req Request) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-progress", "pipe:1",
		"-i", req.Input,
		"-vn",
		"-sn",
		"-dn",
	}
	if len(req.AudioStreams) == 1 {
		args = append(args, "-map", fmt.Sprintf("0:%d", req.AudioStreams[0]))
	} else {
		var filter strings.Builder
		for _, idx := range req.AudioStreams {
			fmt.Fprintf(&filter, "[0:%d]", idx)
		}
		fmt.Fprintf(&filter, "amix=inputs=%d:duration=longest[aout]", len(req.AudioStreams))
		args = append(args, "-filter_complex", filter.String(), "-map", "[aout]")
	}
	args = append(args, codecArgs[req.Format]...)
	args = append(args, req.Output)
	return args
}

// progressParser reads ffmpeg "-progress" key=value lines.
type progressParser struct {
	duration float64
}

func (p progressParser) parse(line string) (float64, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	switch key {
	case "progress":
		if value == "end" {
			return 1, true
		}
	case "out_time_us", "out_time_ms":
		// ffmpeg reports both keys in microseconds.
		if p.duration <= 0 {
			return 0, false
		}
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return 0, false
		}
		fraction := float64(us) / 1e6 / p.duration
		if fraction > 1 {
			fraction = 1
		}
		return fraction, true
	}
	return 0, false
}

type commandExecutor struct{}

// Run starts binary and streams stdout lines to onStdout. Stderr is kept for
// the error message. Start failures are reported as transcoder session
// errors, non-zero exits as media engine errors.
func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrTranscoderSession, "extract", "stdout pipe", binary, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrTranscoderSession, "extract", "start ffmpeg", binary, err)
	}

	var wg sync.WaitGroup
	var scanErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if onStdout != nil {
				onStdout(scanner.Text())
			}
		}
		scanErr = scanner.Err()
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return services.Wrap(services.ErrMediaEngine, "extract", "ffmpeg", lastLines(stderr.String(), 5), err)
		}
		return services.Wrap(services.ErrTranscoderSession, "extract", "wait ffmpeg", "", err)
	}
	if scanErr != nil {
		return services.Wrap(services.ErrMediaEngine, "extract", "read progress", "", scanErr)
	}
	return nil
}

func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
