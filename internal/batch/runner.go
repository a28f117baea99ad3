package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"murmur/internal/fileutil"
	"murmur/internal/logging"
	"murmur/internal/media/extract"
	"murmur/internal/output"
	"murmur/internal/recognition"
	"murmur/internal/services"
	"murmur/internal/transcript"
)

// Transcriber is the recognition orchestrator as seen by the runner.
type Transcriber interface {
	Subscribe(fn recognition.ProgressFunc) func()
	Transcribe(ctx context.Context, req recognition.Request) (transcript.Result, error)
}

// AudioExtractor reduces a video container to a single audio file.
type AudioExtractor interface {
	Extract(ctx context.Context, videoPath, outputPath string, format extract.Format, onProgress extract.ProgressFunc) error
}

// Gate is the process-wide permission check.
type Gate interface {
	Check(ctx context.Context) error
}

// Observer receives per-file progress. index is the item's position in the
// batch.
type Observer func(index int, fraction float64, message string)

// ItemObserver receives a copy of an item whenever its status changes.
type ItemObserver func(index int, item Item)

// Options selects what every file in the batch is transcribed into.
type Options struct {
	Language string
	Format   output.Format
	OnDevice bool
	// OutputDir overrides the directory transcripts are written to. Empty
	// means next to each input.
	OutputDir string
	// TempDir holds intermediate audio extracted from video inputs.
	TempDir string
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver registers a progress observer.
func WithObserver(fn Observer) Option {
	return func(r *Runner) { r.observer = fn }
}

// WithItemObserver registers a status-change observer.
func WithItemObserver(fn ItemObserver) Option {
	return func(r *Runner) { r.itemObserver = fn }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEncoder replaces the transcript encoder.
func WithEncoder(encoder output.Encoder) Option {
	return func(r *Runner) { r.encoder = encoder }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// Runner processes batches sequentially.
type Runner struct {
	transcriber  Transcriber
	extractor    AudioExtractor
	gate         Gate
	opts         Options
	encoder      output.Encoder
	observer     Observer
	itemObserver ItemObserver
	logger       *slog.Logger
	now          func() time.Time

	mu            sync.Mutex
	current       int
	cancelCurrent context.CancelFunc
	items         []Item
	// written holds the transcript paths produced by the current run.
	written map[string]bool
}

// NewRunner constructs a Runner. extractor may be nil when only audio inputs
// are expected; gate may be nil to skip the permission check.
func NewRunner(transcriber Transcriber, extractor AudioExtractor, gate Gate, opts Options, options ...Option) *Runner {
	r := &Runner{
		transcriber: transcriber,
		extractor:   extractor,
		gate:        gate,
		opts:        opts,
		encoder:     output.NewEncoder(),
		logger:      logging.NewNop(),
		now:         time.Now,
		current:     -1,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// CancelCurrent cancels the file being processed. The batch continues with
// the next file.
func (r *Runner) CancelCurrent() {
	r.mu.Lock()
	cancel := r.cancelCurrent
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run transcribes paths in order. The returned error is non-nil only when the
// whole batch was aborted (permission gate failure); per-file failures are
// recorded in the report.
func (r *Runner) Run(ctx context.Context, paths []string) (Report, error) {
	report := Report{RunID: uuid.NewString(), StartedAt: r.now()}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.logger, "batch"))

	items := make([]Item, len(paths))
	for i, path := range paths {
		items[i] = NewItem(path)
		_ = items[i].Queue()
	}
	r.mu.Lock()
	r.items = items
	r.written = make(map[string]bool)
	r.mu.Unlock()
	for i := range items {
		r.notifyItem(i)
	}

	logger.Info("batch started",
		logging.Int("files", len(paths)),
		logging.String("format", r.opts.Format.String()),
		logging.String("language", r.opts.Language),
	)

	if r.gate != nil {
		if err := r.gate.Check(ctx); err != nil {
			if services.IsCancellation(err) {
				for i := range items {
					r.update(i, func(item *Item) { _ = item.Cancel(r.now(), err) })
				}
				logger.Info("batch cancelled before permission was decided")
				return r.finish(&report, logger), err
			}
			for i := range items {
				r.update(i, func(item *Item) { _ = item.Fail(r.now(), err) })
			}
			logger.Error("batch aborted by permission gate",
				logging.Error(err),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.String(logging.FieldEventType, "batch_aborted"),
				logging.String(logging.FieldErrorHint, "grant speech recognition permission (murmur --yes) or reset consent"),
			)
			return r.finish(&report, logger), err
		}
	}

	unsubscribe := r.transcriber.Subscribe(r.forwardRecognition)
	defer unsubscribe()

	for i := range items {
		if ctx.Err() != nil {
			r.update(i, func(item *Item) {
				_ = item.Cancel(r.now(), services.Wrap(services.ErrCancelled, "batch", "run", "batch cancelled", ctx.Err()))
			})
			continue
		}
		r.process(ctx, i, logger)
	}

	return r.finish(&report, logger), nil
}

func (r *Runner) finish(report *Report, logger *slog.Logger) Report {
	r.mu.Lock()
	report.Items = append([]Item(nil), r.items...)
	r.mu.Unlock()
	report.FinishedAt = r.now()
	report.tally()
	logger.Info("batch finished",
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Int("cancelled", report.Cancelled),
		logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return *report
}

func (r *Runner) process(ctx context.Context, index int, batchLogger *slog.Logger) {
	item := r.snapshot(index)
	fileCtx, cancel := context.WithCancel(services.WithFileIndex(services.WithFile(ctx, item.Path), index+1))
	defer cancel()
	r.mu.Lock()
	r.current = index
	r.cancelCurrent = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.current = -1
		r.cancelCurrent = nil
		r.mu.Unlock()
	}()

	logger := logging.WithContext(fileCtx, batchLogger)
	r.update(index, func(it *Item) { _ = it.Start(r.now()) })

	outputPath, result, err := r.transcribeFile(fileCtx, index, item, logger)
	if err != nil {
		if fileCtx.Err() != nil || services.IsCancellation(err) {
			if !services.IsCancellation(err) {
				err = services.Wrap(services.ErrCancelled, "batch", "file", item.Path, err)
			}
			r.update(index, func(it *Item) { _ = it.Cancel(r.now(), err) })
			logger.Info("file cancelled")
			return
		}
		r.update(index, func(it *Item) { _ = it.Fail(r.now(), err) })
		logger.Warn("file failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldEventType, "file_failed"),
			logging.String(logging.FieldErrorHint, services.Describe(err)),
		)
		return
	}

	r.update(index, func(it *Item) { _ = it.Complete(r.now(), outputPath, result) })
	logger.Info("file transcribed",
		logging.String("output", outputPath),
		logging.Int("segments", result.SegmentCount()),
		logging.Bool("on_device", result.IsOnDevice),
	)
}

func (r *Runner) transcribeFile(ctx context.Context, index int, item Item, logger *slog.Logger) (string, transcript.Result, error) {
	if item.Kind == KindUnsupported {
		return "", transcript.Result{}, services.Wrap(services.ErrUnsupportedFormat, "batch", "classify", filepath.Ext(item.Path), nil)
	}
	if _, err := os.Stat(item.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", transcript.Result{}, services.Wrap(services.ErrFileNotFound, "batch", "stat", item.Path, nil)
		}
		return "", transcript.Result{}, services.Wrap(services.ErrFileNotFound, "batch", "stat", item.Path, err)
	}

	audioPath := item.Path
	if item.Kind == KindVideo {
		if r.extractor == nil {
			return "", transcript.Result{}, services.Wrap(services.ErrMediaEngine, "batch", "extract", "no extractor configured", nil)
		}
		workDir, err := os.MkdirTemp(r.opts.TempDir, "murmur-extract-")
		if err != nil {
			return "", transcript.Result{}, services.Wrap(services.ErrMediaEngine, "batch", "temp dir", "", err)
		}
		defer os.RemoveAll(workDir)

		audioPath = filepath.Join(workDir, baseName(item.Path)+extract.FormatM4A.Extension())
		logger.Debug("extracting audio", logging.String("audio", audioPath))
		err = r.extractor.Extract(services.WithStage(ctx, "extract"), item.Path, audioPath, extract.FormatM4A, func(fraction float64, message string) {
			// Extraction occupies the first tenth of the file's progress.
			r.progress(index, fraction*0.1, message)
		})
		if err != nil {
			return "", transcript.Result{}, err
		}
	}

	result, err := r.transcriber.Transcribe(services.WithStage(ctx, "recognize"), recognition.Request{
		AudioPath: audioPath,
		Language:  r.opts.Language,
		OnDevice:  r.opts.OnDevice,
	})
	if err != nil {
		return "", transcript.Result{}, err
	}

	body, err := r.encoder.Encode(result, r.opts.Format)
	if err != nil {
		return "", transcript.Result{}, err
	}
	outputPath := r.claimOutput(OutputPath(r.opts.OutputDir, item.Path, r.opts.Format), logger)
	if err := fileutil.WriteFileLocked(ctx, outputPath, []byte(body), 0o644); err != nil {
		if ctx.Err() != nil {
			return "", transcript.Result{}, ctx.Err()
		}
		return "", transcript.Result{}, fmt.Errorf("write transcript %s: %w", outputPath, err)
	}
	return outputPath, result, nil
}

// claimOutput reserves path for the current file. When an earlier file of the
// same run already wrote there ("talk.mp4" and "talk.wav" both map to
// "talk.txt"), a numeric suffix is added instead of overwriting it.
func (r *Runner) claimOutput(path string, logger *slog.Logger) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.written == nil {
		r.written = make(map[string]bool)
	}
	claimed := path
	for n := 2; r.written[claimed]; n++ {
		claimed = UniqueOutputPath(path, n)
	}
	r.written[claimed] = true
	if claimed != path {
		logging.WarnWithContext(logger, "transcript name already used in this batch", "output_renamed",
			logging.String("wanted", path),
			logging.String("output", claimed),
		)
	}
	return claimed
}

// UniqueOutputPath inserts "-n" before the extension of path.
func UniqueOutputPath(path string, n int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), n, ext)
}

// OutputPath returns where the transcript for input is written: dir (or the
// input's directory when dir is empty) joined with the input's base name and
// the format extension.
func OutputPath(dir, input string, format output.Format) string {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, baseName(input)+"."+format.Extension())
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (r *Runner) forwardRecognition(fraction float64, message string) {
	r.mu.Lock()
	index := r.current
	r.mu.Unlock()
	if index < 0 {
		return
	}
	r.progress(index, fraction, message)
}

func (r *Runner) progress(index int, fraction float64, message string) {
	r.mu.Lock()
	if index < len(r.items) {
		r.items[index].Progress = fraction
		r.items[index].Message = message
	}
	r.mu.Unlock()
	if r.observer != nil {
		r.observer(index, fraction, message)
	}
}

func (r *Runner) update(index int, fn func(*Item)) {
	r.mu.Lock()
	fn(&r.items[index])
	r.mu.Unlock()
	r.notifyItem(index)
}

func (r *Runner) notifyItem(index int) {
	if r.itemObserver == nil {
		return
	}
	r.itemObserver(index, r.snapshot(index))
}

func (r *Runner) snapshot(index int) Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[index]
}
