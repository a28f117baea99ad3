package batch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"murmur/internal/batch"
	"murmur/internal/media/extract"
	"murmur/internal/output"
	"murmur/internal/recognition"
	"murmur/internal/services"
	"murmur/internal/transcript"
)

type fakeTranscriber struct {
	mu       sync.Mutex
	sub      recognition.ProgressFunc
	requests []recognition.Request
	// blockOn makes Transcribe wait for cancellation for matching audio paths.
	blockOn  string
	started  chan struct{}
	failWith error
}

func (f *fakeTranscriber) Subscribe(fn recognition.ProgressFunc) func() {
	f.mu.Lock()
	f.sub = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.sub = nil
		f.mu.Unlock()
	}
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req recognition.Request) (transcript.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	sub := f.sub
	f.mu.Unlock()

	if sub != nil {
		sub(0.1, recognition.MessagePreparing)
	}
	if f.blockOn != "" && strings.Contains(req.AudioPath, f.blockOn) {
		if f.started != nil {
			close(f.started)
		}
		<-ctx.Done()
		return transcript.Result{}, services.Wrap(services.ErrCancelled, "recognition", "transcribe", req.AudioPath, ctx.Err())
	}
	if f.failWith != nil {
		return transcript.Result{}, f.failWith
	}
	if sub != nil {
		sub(1, recognition.MessageComplete)
	}
	return transcript.Aggregate(transcript.Response{Final: true, Text: "hello " + filepath.Base(req.AudioPath)}, 2, req.Language, req.OnDevice), nil
}

func (f *fakeTranscriber) audioPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, req := range f.requests {
		out = append(out, req.AudioPath)
	}
	return out
}

type fakeExtractor struct {
	calls []string
}

func (f *fakeExtractor) Extract(_ context.Context, videoPath, outputPath string, format extract.Format, onProgress extract.ProgressFunc) error {
	f.calls = append(f.calls, videoPath)
	if format != extract.FormatM4A {
		return errors.New("unexpected format")
	}
	onProgress(0.1, extract.MessageAnalyzing)
	onProgress(1.0, extract.MessageFinalizing)
	return os.WriteFile(outputPath, []byte("audio"), 0o644)
}

type gateFunc func(ctx context.Context) error

func (g gateFunc) Check(ctx context.Context) error { return g(ctx) }

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunProcessesFilesSequentially(t *testing.T) {
	dir := t.TempDir()
	audio := touch(t, dir, "memo.wav")
	video := touch(t, dir, "talk.mp4")
	notes := touch(t, dir, "notes.pdf")
	missing := filepath.Join(dir, "gone.mp3")

	transcriber := &fakeTranscriber{}
	extractor := &fakeExtractor{}
	var mu sync.Mutex
	var events []string
	runner := batch.NewRunner(transcriber, extractor, nil, batch.Options{
		Language: "en-US",
		Format:   output.FormatSRT,
		TempDir:  t.TempDir(),
	}, batch.WithObserver(func(index int, fraction float64, message string) {
		mu.Lock()
		defer mu.Unlock()
		if index == 1 && fraction <= 0.1 && message == extract.MessageFinalizing {
			events = append(events, "extracted")
		}
	}))

	report, err := runner.Run(context.Background(), []string{audio, video, notes, missing})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.RunID == "" || report.Total() != 4 {
		t.Fatalf("unexpected report header %+v", report)
	}
	if report.Succeeded != 2 || report.Failed != 2 || report.Cancelled != 0 || report.ExitCode() != 1 {
		t.Fatalf("unexpected counts %+v", report)
	}

	wantStatus := []batch.Status{batch.StatusDone, batch.StatusDone, batch.StatusError, batch.StatusError}
	for i, want := range wantStatus {
		if report.Items[i].Status != want {
			t.Fatalf("item %d status = %s, want %s", i, report.Items[i].Status, want)
		}
	}
	if !errors.Is(report.Items[2].Err, services.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", report.Items[2].Err)
	}
	if !errors.Is(report.Items[3].Err, services.ErrFileNotFound) {
		t.Fatalf("expected file not found, got %v", report.Items[3].Err)
	}

	if got := report.Items[0].Output; got != filepath.Join(dir, "memo.srt") {
		t.Fatalf("unexpected output path %q", got)
	}
	data, err := os.ReadFile(filepath.Join(dir, "talk.srt"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if !strings.Contains(string(data), "hello talk.m4a") {
		t.Fatalf("expected transcript of extracted audio, got %q", data)
	}

	paths := transcriber.audioPaths()
	if len(paths) != 2 || paths[0] != audio || filepath.Ext(paths[1]) != ".m4a" {
		t.Fatalf("unexpected recognition order %v", paths)
	}
	if len(extractor.calls) != 1 || extractor.calls[0] != video {
		t.Fatalf("expected one extraction of the video, got %v", extractor.calls)
	}
	if _, err := os.Stat(paths[1]); !os.IsNotExist(err) {
		t.Fatal("expected temporary audio to be removed")
	}
	if len(events) != 1 {
		t.Fatalf("expected scaled extraction progress, got %v", events)
	}
}

func TestRunAbortsWhenPermissionDenied(t *testing.T) {
	dir := t.TempDir()
	paths := []string{touch(t, dir, "a.wav"), touch(t, dir, "b.wav"), touch(t, dir, "c.wav")}
	transcriber := &fakeTranscriber{}
	denied := services.Wrap(services.ErrPermissionDenied, "permission", "check", "denied", nil)
	runner := batch.NewRunner(transcriber, nil, gateFunc(func(context.Context) error { return denied }), batch.Options{
		Language: "en-US",
		Format:   output.FormatText,
	})

	report, err := runner.Run(context.Background(), paths)
	if !errors.Is(err, services.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if report.Failed != 3 || report.Succeeded != 0 {
		t.Fatalf("expected every file to fail, got %+v", report)
	}
	for _, item := range report.Items {
		if item.Status != batch.StatusError || !errors.Is(item.Err, services.ErrPermissionDenied) {
			t.Fatalf("unexpected item %+v", item)
		}
	}
	if len(transcriber.audioPaths()) != 0 {
		t.Fatal("no file should reach recognition")
	}
	for _, p := range paths {
		if _, err := os.Stat(strings.TrimSuffix(p, ".wav") + ".txt"); !os.IsNotExist(err) {
			t.Fatalf("unexpected transcript for %s", p)
		}
	}
}

func TestCancelCurrentContinuesWithNextFile(t *testing.T) {
	dir := t.TempDir()
	first := touch(t, dir, "slow.wav")
	second := touch(t, dir, "fast.wav")
	transcriber := &fakeTranscriber{blockOn: "slow", started: make(chan struct{})}
	outDir := t.TempDir()
	runner := batch.NewRunner(transcriber, nil, nil, batch.Options{
		Language:  "en-US",
		Format:    output.FormatVTT,
		OutputDir: outDir,
	})

	go func() {
		<-transcriber.started
		runner.CancelCurrent()
	}()
	report, err := runner.Run(context.Background(), []string{first, second})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Items[0].Status != batch.StatusCancelled || !errors.Is(report.Items[0].Err, services.ErrCancelled) {
		t.Fatalf("expected first file cancelled, got %+v", report.Items[0])
	}
	if report.Items[1].Status != batch.StatusDone {
		t.Fatalf("expected second file done, got %+v", report.Items[1])
	}
	if report.Items[1].Output != filepath.Join(outDir, "fast.vtt") {
		t.Fatalf("expected output dir override, got %q", report.Items[1].Output)
	}
	if report.Cancelled != 1 || report.Succeeded != 1 {
		t.Fatalf("unexpected counts %+v", report)
	}
}

func TestContextCancellationMarksRemainingCancelled(t *testing.T) {
	dir := t.TempDir()
	paths := []string{touch(t, dir, "slow.wav"), touch(t, dir, "b.wav"), touch(t, dir, "c.wav")}
	transcriber := &fakeTranscriber{blockOn: "slow", started: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-transcriber.started
		cancel()
	}()

	var mu sync.Mutex
	transitions := map[int][]batch.Status{}
	runner := batch.NewRunner(transcriber, nil, nil, batch.Options{Language: "en-US", Format: output.FormatJSON},
		batch.WithItemObserver(func(index int, item batch.Item) {
			mu.Lock()
			transitions[index] = append(transitions[index], item.Status)
			mu.Unlock()
		}),
		batch.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)
	report, err := runner.Run(ctx, paths)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Cancelled != 3 {
		t.Fatalf("expected all files cancelled, got %+v", report)
	}
	if len(transcriber.audioPaths()) != 1 {
		t.Fatalf("later files must not start, got %v", transcriber.audioPaths())
	}
	mu.Lock()
	defer mu.Unlock()
	want := []batch.Status{batch.StatusQueued, batch.StatusProcessing, batch.StatusCancelled}
	if got := transitions[0]; len(got) != len(want) || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("unexpected transitions for first file: %v", got)
	}
}

func TestRunRecordsEngineFailure(t *testing.T) {
	dir := t.TempDir()
	transcriber := &fakeTranscriber{failWith: services.Wrap(services.ErrLanguageNotSupported, "recognition", "availability", "tlh", nil)}
	runner := batch.NewRunner(transcriber, nil, nil, batch.Options{Language: "tlh", Format: output.FormatText})
	report, err := runner.Run(context.Background(), []string{touch(t, dir, "a.wav"), touch(t, dir, "b.wav")})
	if err != nil {
		t.Fatalf("file failures must not abort the batch: %v", err)
	}
	if report.Failed != 2 || len(transcriber.audioPaths()) != 2 {
		t.Fatalf("expected both files attempted and failed, got %+v", report)
	}
}

func TestOutputPath(t *testing.T) {
	if got := batch.OutputPath("", "/media/in/clip.final.mov", output.FormatSRT); got != "/media/in/clip.final.srt" {
		t.Fatalf("OutputPath = %q", got)
	}
	if got := batch.OutputPath("/out", "/media/in/clip.mov", output.FormatText); got != "/out/clip.txt" {
		t.Fatalf("OutputPath = %q", got)
	}
}

func TestRunCancelledAtPermissionPromptMarksItemsCancelled(t *testing.T) {
	dir := t.TempDir()
	paths := []string{touch(t, dir, "a.wav"), touch(t, dir, "b.wav")}
	interrupted := services.Wrap(services.ErrCancelled, "permission", "request", "", context.Canceled)
	runner := batch.NewRunner(&fakeTranscriber{}, nil, gateFunc(func(context.Context) error { return interrupted }), batch.Options{
		Language: "en-US",
		Format:   output.FormatText,
	})

	report, err := runner.Run(context.Background(), paths)
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if report.Cancelled != 2 || report.Failed != 0 {
		t.Fatalf("expected both files cancelled, got %+v", report)
	}
}

func TestRunKeepsTranscriptsWithSameBaseName(t *testing.T) {
	dir := t.TempDir()
	video := touch(t, dir, "talk.mp4")
	audio := touch(t, dir, "talk.wav")
	transcriber := &fakeTranscriber{}
	runner := batch.NewRunner(transcriber, &fakeExtractor{}, nil, batch.Options{
		Language: "en-US",
		Format:   output.FormatText,
		TempDir:  t.TempDir(),
	})

	report, err := runner.Run(context.Background(), []string{video, audio})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Succeeded != 2 {
		t.Fatalf("expected both files done, got %+v", report)
	}
	first, second := report.Items[0].Output, report.Items[1].Output
	if first != filepath.Join(dir, "talk.txt") || second != filepath.Join(dir, "talk-2.txt") {
		t.Fatalf("unexpected outputs %q and %q", first, second)
	}
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read first transcript: %v", err)
	}
	if strings.Contains(string(data), "talk.wav") {
		t.Fatalf("first transcript was overwritten: %q", data)
	}
}

func TestUniqueOutputPath(t *testing.T) {
	if got := batch.UniqueOutputPath("/out/talk.srt", 3); got != "/out/talk-3.srt" {
		t.Fatalf("UniqueOutputPath = %q", got)
	}
}
