package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	langpkg "murmur/internal/language"
	"murmur/internal/recognition"
	"murmur/internal/services"
	"murmur/internal/transcript"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Engine implements recognition.Engine on top of WhisperX.
type Engine struct {
	cfg           Config
	commandRunner CommandRunner
	lookPath      func(string) (string, error)
	tempDir       string
}

// New creates a WhisperX engine with the given configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, lookPath: exec.LookPath}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Engine) WithCommandRunner(runner CommandRunner) {
	e.commandRunner = runner
}

// WithLookPath replaces binary discovery (for testing).
func (e *Engine) WithLookPath(lookPath func(string) (string, error)) {
	e.lookPath = lookPath
}

// WithTempDir sets where scratch output directories are created.
func (e *Engine) WithTempDir(dir string) {
	e.tempDir = dir
}

// Name implements recognition.Engine.
func (e *Engine) Name() string { return "whisperx" }

// Model returns the configured model name for logging.
func (e *Engine) Model() string { return e.cfg.model() }

// Availability implements recognition.Engine. WhisperX only runs locally.
func (e *Engine) Availability(_ context.Context, language string) (recognition.Availability, error) {
	if _, err := e.lookPath(e.cfg.binary()); err != nil {
		return recognition.Availability{}, nil
	}
	supported := langpkg.Supported(language)
	return recognition.Availability{Available: true, Supported: supported, OnDevice: supported}, nil
}

// Recognize implements recognition.Engine. WhisperX produces no partial
// results, so exactly one final response is emitted.
func (e *Engine) Recognize(ctx context.Context, req recognition.Request, onResponse func(transcript.Response)) error {
	if strings.TrimSpace(req.AudioPath) == "" {
		return services.Wrap(services.ErrTranscriptionFailed, "whisperx", "recognize", "audio path required", nil)
	}
	outputDir, err := os.MkdirTemp(e.tempDir, "murmur-whisperx-")
	if err != nil {
		return services.Wrap(services.ErrTranscriptionFailed, "whisperx", "scratch dir", "", err)
	}
	defer os.RemoveAll(outputDir)

	args := e.buildArgs(req.AudioPath, outputDir, req.Language)
	if err := e.run(ctx, e.cfg.binary(), args...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrTranscriptionFailed, "whisperx", "run", "", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath))
	segments, err := LoadSegments(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return services.Wrap(services.ErrTranscriptionFailed, "whisperx", "load output", "", err)
	}
	onResponse(ToResponse(segments))
	return nil
}

// run executes a command, using the custom runner if set.
func (e *Engine) run(ctx context.Context, name string, args ...string) error {
	if e.commandRunner != nil {
		if output, err := e.commandRunner(ctx, name, args...); err != nil {
			return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
		}
		return nil
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// buildArgs assembles "uvx [index flags] whisperx <source> [options]".
func (e *Engine) buildArgs(source, outputDir, language string) []string {
	args := e.cfg.launcherArgs()
	args = append(args, "whisperx", source,
		"--model", e.Model(),
		"--output_dir", outputDir,
		"--output_format", "json",
	)
	args = append(args, decodingArgs()...)

	vad := e.cfg.vadMethod()
	args = append(args, "--vad_method", vad)
	if vad == VADMethodPyannote && e.cfg.HFToken != "" {
		args = append(args, "--hf_token", e.cfg.HFToken)
	}
	if lang := langpkg.Base(language); lang != "" {
		args = append(args, "--language", lang)
	}
	return append(args, e.cfg.deviceArgs()...)
}

// Word represents a single word with timing from WhisperX output.
type Word struct {
	Word  string   `json:"word"`
	Start float64  `json:"start"`
	End   float64  `json:"end"`
	Score *float64 `json:"score,omitempty"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

// Confidence is the mean word score, or 1.0 when WhisperX reported none.
func (s Segment) Confidence() float64 {
	var sum float64
	var n int
	for _, w := range s.Words {
		if w.Score == nil {
			continue
		}
		sum += *w.Score
		n++
	}
	if n == 0 {
		return 1.0
	}
	return transcript.ClampConfidence(sum / float64(n))
}

type payload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return p.Segments, nil
}

// ToResponse converts WhisperX segments into a final recognition response.
func ToResponse(segments []Segment) transcript.Response {
	resp := transcript.Response{Final: true}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		resp.Spans = append(resp.Spans, transcript.Span{
			Text:       text,
			Timestamp:  seg.Start,
			Duration:   seg.End - seg.Start,
			Confidence: seg.Confidence(),
		})
	}
	resp.Text = strings.Join(parts, " ")
	return resp
}
