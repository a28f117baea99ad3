package extract

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"murmur/internal/language"
	"murmur/internal/logging"
	"murmur/internal/media/ffprobe"
	"murmur/internal/services"
)

// ProgressFunc receives extraction progress in [0.1, 1.0] with a short phase
// message.
type ProgressFunc func(fraction float64, message string)

// Request describes one transcode job handed to a Transcoder.
type Request struct {
	Input  string
	Output string
	Format Format
	// AudioStreams holds the container stream indexes to include. More than
	// one stream is mixed down at equal gain.
	AudioStreams []int
	// Duration is the input duration in seconds, 0 when unknown.
	Duration float64
}

// Transcoder converts the audio of a media file into a standalone audio
// file. Progress is reported as a fraction in [0, 1].
type Transcoder interface {
	Supports(format Format) bool
	Transcode(ctx context.Context, req Request, onProgress func(float64)) error
}

// Prober inspects a media file's streams.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// Option configures the extractor.
type Option func(*Extractor)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Extractor pulls every audio track out of a container into one audio file.
type Extractor struct {
	transcoder Transcoder
	prober     Prober
	logger     *slog.Logger
}

// New constructs an Extractor.
func New(transcoder Transcoder, prober Prober, opts ...Option) *Extractor {
	e := &Extractor{
		transcoder: transcoder,
		prober:     prober,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract writes the audio of videoPath to outputPath in the given format.
//
// Checks run in order: the input must exist, the format must be supported,
// and the input must carry at least one audio stream. An existing file at
// outputPath is replaced. onProgress may be nil.
func (e *Extractor) Extract(ctx context.Context, videoPath, outputPath string, format Format, onProgress ProgressFunc) error {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(e.logger, "extract"))

	if info, err := os.Stat(videoPath); err != nil || info.IsDir() {
		return services.Wrap(services.ErrFileNotFound, "extract", "stat input", videoPath, err)
	}
	if !format.Valid() || e.transcoder == nil || !e.transcoder.Supports(format) {
		return services.Wrap(services.ErrUnsupportedFormat, "extract", "select format", string(format), nil)
	}

	probe, err := e.prober.Probe(ctx, videoPath)
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrExtractionCancelled, "extract", "probe", videoPath, ctx.Err())
		}
		return services.Wrap(services.ErrMediaEngine, "extract", "probe", videoPath, err)
	}
	audio := probe.AudioStreams()
	if len(audio) == 0 {
		return services.Wrap(services.ErrNoAudioTrack, "extract", "probe", videoPath, nil)
	}
	indexes := make([]int, 0, len(audio))
	for _, stream := range audio {
		indexes = append(indexes, stream.Index)
		logger.Debug("audio stream selected",
			logging.Int("stream_index", stream.Index),
			logging.String("codec", stream.CodecName),
			logging.Int("channels", stream.Channels),
			logging.String("language", language.FromStreamTags(stream.Tags)),
		)
	}

	if err := os.Remove(outputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrMediaEngine, "extract", "remove existing output", outputPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrMediaEngine, "extract", "create output directory", filepath.Dir(outputPath), err)
	}

	reporter := newReporter(onProgress)
	reporter.report(0)

	req := Request{
		Input:        videoPath,
		Output:       outputPath,
		Format:       format,
		AudioStreams: indexes,
		Duration:     probe.AudioDurationSeconds(),
	}
	logger.Info("extracting audio",
		logging.String("output", outputPath),
		logging.String("format", string(format)),
		logging.Int("audio_streams", len(indexes)),
	)
	if err := e.transcoder.Transcode(ctx, req, reporter.report); err != nil {
		_ = os.Remove(outputPath)
		return classify(ctx, err)
	}
	reporter.report(1)
	return nil
}

func classify(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return services.Wrap(services.ErrExtractionCancelled, "extract", "transcode", "", err)
	case errors.Is(err, services.ErrTranscoderSession),
		errors.Is(err, services.ErrMediaEngine),
		errors.Is(err, services.ErrExtractionCancelled):
		return err
	default:
		return services.Wrap(services.ErrMediaEngine, "extract", "transcode", "", err)
	}
}

// Phase messages keyed by the reported fraction.
const (
	MessageAnalyzing  = "Analyzing…"
	MessageExtracting = "Extracting…"
	MessageConverting = "Converting…"
	MessageFinalizing = "Finalizing…"
)

// PhaseMessage returns the message shown for a reported fraction.
func PhaseMessage(fraction float64) string {
	switch {
	case fraction < 0.3:
		return MessageAnalyzing
	case fraction < 0.6:
		return MessageExtracting
	case fraction < 0.9:
		return MessageConverting
	default:
		return MessageFinalizing
	}
}

// reporter maps transcoder fractions onto [0.1, 1.0] and never reports a
// lower value than it already has.
type reporter struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last float64
}

func newReporter(fn ProgressFunc) *reporter {
	return &reporter{fn: fn, last: -1}
}

func (r *reporter) report(transcoderFraction float64) {
	if r.fn == nil {
		return
	}
	if math.IsNaN(transcoderFraction) {
		return
	}
	transcoderFraction = math.Max(0, math.Min(1, transcoderFraction))
	value := 0.1 + 0.9*transcoderFraction

	r.mu.Lock()
	defer r.mu.Unlock()
	if value <= r.last {
		return
	}
	r.last = value
	r.fn(value, PhaseMessage(value))
}
