package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"murmur/internal/logging"
	"murmur/internal/permission"
	"murmur/internal/services"
	"murmur/internal/transcript"
)

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithProgressModel replaces the synthetic progress constants.
func WithProgressModel(model ProgressModel) Option {
	return func(o *Orchestrator) {
		o.model = model
	}
}

// WithDurationProber sets how audio duration is measured. Without one the
// duration is unknown and the minimum estimate applies.
func WithDurationProber(prober DurationProber) Option {
	return func(o *Orchestrator) {
		o.prober = prober
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator drives one recognition request at a time: it checks the
// permission gate, routes between on-device and server recognition, shows
// synthetic progress while the engine works, and turns the final response
// into a transcript.Result.
type Orchestrator struct {
	engine Engine
	gate   *permission.Gate
	prober DurationProber
	model  ProgressModel
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	running bool
	final   bool
	cancel  context.CancelFunc

	subMu   sync.Mutex
	subs    map[int]ProgressFunc
	nextSub int

	// pubMu serializes progress delivery.
	pubMu   sync.Mutex
	last    float64
	lastMsg string
	halted  bool
	sampler *logging.ProgressSampler
}

// New constructs an Orchestrator. A nil gate skips the permission check.
func New(engine Engine, gate *permission.Gate, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:  engine,
		gate:    gate,
		model:   DefaultProgressModel(),
		logger:  logging.NewNop(),
		subs:    make(map[int]ProgressFunc),
		sampler: logging.NewProgressSampler(0.1),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.model.Interval <= 0 {
		o.model.Interval = DefaultProgressModel().Interval
	}
	return o
}

// Subscribe registers fn for progress updates and returns a function that
// removes it. Callbacks are never invoked concurrently.
func (o *Orchestrator) Subscribe(fn ProgressFunc) func() {
	if fn == nil {
		return func() {}
	}
	o.subMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.subMu.Lock()
			delete(o.subs, id)
			o.subMu.Unlock()
		})
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Cancel aborts the in-flight transcription. It does nothing when idle or
// once the final result has arrived.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running || o.final || o.cancel == nil {
		return
	}
	o.cancel()
}

// Transcribe recognizes the audio at req.AudioPath. Only one call may run at
// a time. Cancelling ctx has the same effect as Cancel.
func (o *Orchestrator) Transcribe(ctx context.Context, req Request) (transcript.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return transcript.Result{}, services.Wrap(services.ErrTranscriptionFailed, "recognition", "transcribe", "another transcription is in progress", nil)
	}
	o.running = true
	o.final = false
	o.cancel = cancel
	o.state = StateIdle
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.cancel = nil
		o.mu.Unlock()
	}()
	o.resetProgress()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(o.logger, "recognition"))
	result, err := o.run(runCtx, req, logger)
	if err == nil {
		return result, nil
	}
	if runCtx.Err() != nil && !o.finalLanded() {
		o.setState(StateCancelled)
		o.publishCancelled()
		logger.Info("transcription cancelled", logging.String("audio", req.AudioPath))
		return transcript.Result{}, services.Wrap(services.ErrCancelled, "recognition", "transcribe", req.AudioPath, runCtx.Err())
	}
	o.setState(StateFailed)
	return transcript.Result{}, err
}

func (o *Orchestrator) run(ctx context.Context, req Request, logger *slog.Logger) (transcript.Result, error) {
	o.setState(StateAwaitingPermission)
	if err := o.gate.Check(ctx); err != nil {
		return transcript.Result{}, err
	}
	if o.engine == nil {
		return transcript.Result{}, services.Wrap(services.ErrRecognitionUnavailable, "recognition", "availability", "no engine configured", nil)
	}
	o.publish(0.1, MessagePreparing)

	effective, err := o.route(ctx, req, logger)
	if err != nil {
		return transcript.Result{}, err
	}

	o.publish(0.2, MessageLoadingAudio)
	duration := o.measure(ctx, req.AudioPath, logger)
	if err := ctx.Err(); err != nil {
		return transcript.Result{}, err
	}
	estimate := o.model.Estimate(duration)

	o.setState(StateRequesting)
	o.publish(o.model.Start, MessageTranscribing)
	logger.Debug("recognition started",
		logging.String("engine", o.engine.Name()),
		logging.String("language", effective.Language),
		logging.Bool("on_device", effective.OnDevice),
		logging.Float64("audio_seconds", duration),
		logging.Duration("estimate", estimate),
	)

	tk := o.startTicker(ctx, estimate)
	defer tk.stop()

	var (
		respMu sync.Mutex
		final  *transcript.Response
	)
	engineErr := o.engine.Recognize(ctx, effective, func(resp transcript.Response) {
		if resp.Final {
			respMu.Lock()
			if final == nil {
				r := resp
				final = &r
			}
			respMu.Unlock()
			o.markFinal()
			tk.halt()
			return
		}
		if o.finalLanded() {
			return
		}
		o.setState(StatePartialResult)
		tk.nudge()
	})
	tk.stop()

	respMu.Lock()
	landed := final
	respMu.Unlock()

	if landed == nil {
		if engineErr == nil {
			return transcript.Result{}, services.Wrap(services.ErrTranscriptionFailed, "recognition", o.engine.Name(), "engine finished without a final result", nil)
		}
		if ctx.Err() != nil {
			return transcript.Result{}, ctx.Err()
		}
		return transcript.Result{}, classifyEngineError(o.engine.Name(), engineErr)
	}
	if engineErr != nil {
		logger.Debug("engine reported an error after the final result", logging.Error(engineErr))
	}

	o.publish(o.model.FinalValue, MessageFinalizing)
	if o.model.FinalHold > 0 {
		hold := time.NewTimer(o.model.FinalHold)
		<-hold.C
	}
	result := transcript.Aggregate(*landed, duration, req.Language, effective.OnDevice)
	o.setState(StateComplete)
	o.publish(1.0, MessageComplete)
	logger.Debug("recognition complete",
		logging.Int("segments", result.SegmentCount()),
		logging.Float64("avg_confidence", result.AverageConfidence()),
	)
	return result, nil
}

// route checks engine availability and downgrades on-device requests the
// engine cannot serve locally.
func (o *Orchestrator) route(ctx context.Context, req Request, logger *slog.Logger) (Request, error) {
	avail, err := o.engine.Availability(ctx, req.Language)
	if err != nil {
		if ctx.Err() != nil {
			return req, ctx.Err()
		}
		return req, services.Wrap(services.ErrRecognitionUnavailable, "recognition", "availability", o.engine.Name(), err)
	}
	if !avail.Available {
		return req, services.Wrap(services.ErrRecognitionUnavailable, "recognition", "availability", o.engine.Name(), nil)
	}
	if !avail.Supported {
		return req, services.Wrap(services.ErrLanguageNotSupported, "recognition", "availability", req.Language, nil)
	}
	effective := req
	if req.OnDevice && !avail.OnDevice {
		effective.OnDevice = false
		message := DowngradeMessage(req.Language)
		o.publish(0.1, message)
		logger.Info("on-device recognition unavailable; using server-based recognition",
			logging.String("language", req.Language),
			logging.String(logging.FieldEventType, "on_device_downgrade"),
		)
	}
	return effective, nil
}

// DowngradeMessage is the progress message published when on-device
// recognition is not available for a language.
func DowngradeMessage(language string) string {
	return fmt.Sprintf("On-device recognition unavailable for %s; using server-based recognition", language)
}

func (o *Orchestrator) measure(ctx context.Context, path string, logger *slog.Logger) float64 {
	if o.prober == nil {
		return 0
	}
	seconds, err := o.prober.Duration(ctx, path)
	if err != nil {
		logger.Warn("could not measure audio duration; using minimum estimate",
			logging.String("audio", path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "duration_probe_failed"),
			logging.String(logging.FieldErrorHint, "install ffprobe or use WAV input for accurate progress"),
		)
		return 0
	}
	return seconds
}

func classifyEngineError(engine string, err error) error {
	if services.Kind(err) != "unknown" {
		return err
	}
	return services.Wrap(services.ErrTranscriptionFailed, "recognition", engine, "", err)
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

func (o *Orchestrator) markFinal() {
	o.mu.Lock()
	o.final = true
	o.state = StateFinalResult
	o.mu.Unlock()
}

func (o *Orchestrator) finalLanded() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.final
}

func (o *Orchestrator) resetProgress() {
	o.pubMu.Lock()
	defer o.pubMu.Unlock()
	o.last = 0
	o.lastMsg = ""
	o.halted = false
	o.sampler.Reset()
}

// publish delivers a progress update unless it would move progress
// backwards or repeat the previous update exactly.
func (o *Orchestrator) publish(fraction float64, message string) {
	o.pubMu.Lock()
	defer o.pubMu.Unlock()
	if o.halted || fraction < o.last {
		return
	}
	if fraction == o.last && message == o.lastMsg {
		return
	}
	o.last = fraction
	o.lastMsg = message
	o.deliver(fraction, message)
}

// publishCancelled resets progress to zero and silences further updates
// until the next Transcribe.
func (o *Orchestrator) publishCancelled() {
	o.pubMu.Lock()
	defer o.pubMu.Unlock()
	if o.halted {
		return
	}
	o.last = 0
	o.lastMsg = MessageCancelled
	o.deliver(0, MessageCancelled)
	o.halted = true
}

func (o *Orchestrator) deliver(fraction float64, message string) {
	if o.sampler.ShouldLog(fraction, message) {
		o.logger.Debug("recognition progress",
			logging.Float64("progress", fraction),
			logging.String("message", message),
		)
	}
	o.subMu.Lock()
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]ProgressFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.subs[id])
	}
	o.subMu.Unlock()
	for _, fn := range fns {
		fn(fraction, message)
	}
}

// ticker publishes the synthetic progress curve on a fixed interval.
type ticker struct {
	model    ProgressModel
	estimate time.Duration
	started  time.Time

	mu     sync.Mutex
	target float64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (o *Orchestrator) startTicker(ctx context.Context, estimate time.Duration) *ticker {
	tctx, cancel := context.WithCancel(ctx)
	t := &ticker{
		model:    o.model,
		estimate: estimate,
		started:  time.Now(),
		target:   o.model.Target,
		cancel:   cancel,
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		clock := time.NewTicker(o.model.Interval)
		defer clock.Stop()
		for {
			select {
			case <-tctx.Done():
				return
			case now := <-clock.C:
				if tctx.Err() != nil {
					return
				}
				o.publish(t.value(now), MessageTranscribing)
			}
		}
	}()
	return t
}

func (t *ticker) value(now time.Time) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.model.At(now.Sub(t.started), t.estimate, t.target)
}

func (t *ticker) nudge() {
	t.mu.Lock()
	t.target = t.model.Nudged(t.target)
	t.mu.Unlock()
}

// halt stops the ticker without waiting for it.
func (t *ticker) halt() {
	t.cancel()
}

// stop stops the ticker and waits for its goroutine to exit.
func (t *ticker) stop() {
	t.cancel()
	t.wg.Wait()
}
