package extract_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"murmur/internal/media/extract"
	"murmur/internal/media/ffprobe"
	"murmur/internal/services"
)

type fakeProber struct {
	result ffprobe.Result
	err    error
}

func (f fakeProber) Probe(context.Context, string) (ffprobe.Result, error) {
	return f.result, f.err
}

type fakeTranscoder struct {
	mu        sync.Mutex
	supported bool
	steps     []float64
	err       error
	requests  []extract.Request
}

func (f *fakeTranscoder) Supports(extract.Format) bool { return f.supported }

func (f *fakeTranscoder) Transcode(ctx context.Context, req extract.Request, onProgress func(float64)) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	for _, step := range f.steps {
		onProgress(step)
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(req.Output, []byte("audio"), 0o644)
}

type progressEvent struct {
	fraction float64
	message  string
}

func twoTrackProbe() ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{Index: 0, CodecType: "video"},
			{Index: 1, CodecType: "audio", CodecName: "aac", Tags: map[string]string{"language": "eng"}},
			{Index: 2, CodecType: "audio", CodecName: "ac3"},
		},
		Format: ffprobe.Format{Duration: "120"},
	}
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestExtractReportsScaledMonotonicProgress(t *testing.T) {
	transcoder := &fakeTranscoder{supported: true, steps: []float64{0, 0.2, 0.1, 0.5, 0.9, 1}}
	extractor := extract.New(transcoder, fakeProber{result: twoTrackProbe()})
	input := writeInput(t)
	output := filepath.Join(t.TempDir(), "nested", "clip.m4a")
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(output, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	var events []progressEvent
	err := extractor.Extract(context.Background(), input, output, extract.FormatM4A, func(fraction float64, message string) {
		events = append(events, progressEvent{fraction, message})
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(events) == 0 || events[0].fraction != 0.1 || events[0].message != extract.MessageAnalyzing {
		t.Fatalf("expected first event at 0.1 Analyzing, got %+v", events)
	}
	last := events[len(events)-1]
	if last.fraction != 1 || last.message != extract.MessageFinalizing {
		t.Fatalf("expected final event at 1.0 Finalizing, got %+v", last)
	}
	prev := 0.0
	for _, ev := range events {
		if ev.fraction < 0.1 || ev.fraction > 1 || ev.fraction < prev {
			t.Fatalf("progress out of range or decreasing: %+v", events)
		}
		prev = ev.fraction
	}

	data, err := os.ReadFile(output)
	if err != nil || string(data) != "audio" {
		t.Fatalf("expected fresh output, got %q (%v)", data, err)
	}
	req := transcoder.requests[0]
	if len(req.AudioStreams) != 2 || req.AudioStreams[0] != 1 || req.AudioStreams[1] != 2 {
		t.Fatalf("expected both audio streams, got %v", req.AudioStreams)
	}
	if req.Duration != 120 {
		t.Fatalf("expected probed duration, got %v", req.Duration)
	}
}

func TestPhaseMessages(t *testing.T) {
	tests := map[float64]string{
		0.1:  extract.MessageAnalyzing,
		0.29: extract.MessageAnalyzing,
		0.3:  extract.MessageExtracting,
		0.59: extract.MessageExtracting,
		0.6:  extract.MessageConverting,
		0.89: extract.MessageConverting,
		0.9:  extract.MessageFinalizing,
		1.0:  extract.MessageFinalizing,
	}
	for fraction, want := range tests {
		if got := extract.PhaseMessage(fraction); got != want {
			t.Errorf("PhaseMessage(%v) = %q, want %q", fraction, got, want)
		}
	}
}

func TestExtractPreconditionOrder(t *testing.T) {
	ctx := context.Background()
	output := filepath.Join(t.TempDir(), "out.m4a")

	missing := extract.New(&fakeTranscoder{supported: false}, fakeProber{})
	err := missing.Extract(ctx, filepath.Join(t.TempDir(), "nope.mp4"), output, extract.FormatM4A, nil)
	if !errors.Is(err, services.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound before format check, got %v", err)
	}

	unsupported := extract.New(&fakeTranscoder{supported: false}, fakeProber{})
	err = unsupported.Extract(ctx, writeInput(t), output, extract.FormatM4A, nil)
	if !errors.Is(err, services.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	silent := extract.New(&fakeTranscoder{supported: true}, fakeProber{result: ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}}})
	err = silent.Extract(ctx, writeInput(t), output, extract.FormatM4A, nil)
	if !errors.Is(err, services.ErrNoAudioTrack) {
		t.Fatalf("expected ErrNoAudioTrack, got %v", err)
	}
}

func TestExtractClassifiesTranscoderFailures(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.wav")

	failing := extract.New(&fakeTranscoder{supported: true, err: errors.New("boom")}, fakeProber{result: twoTrackProbe()})
	err := failing.Extract(context.Background(), writeInput(t), output, extract.FormatWAV, nil)
	if !errors.Is(err, services.ErrMediaEngine) {
		t.Fatalf("expected ErrMediaEngine, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatal("expected partial output to be removed")
	}

	session := services.Wrap(services.ErrTranscoderSession, "extract", "start ffmpeg", "ffmpeg", errors.New("not found"))
	noSession := extract.New(&fakeTranscoder{supported: true, err: session}, fakeProber{result: twoTrackProbe()})
	err = noSession.Extract(context.Background(), writeInput(t), output, extract.FormatWAV, nil)
	if !errors.Is(err, services.ErrTranscoderSession) {
		t.Fatalf("expected ErrTranscoderSession, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cancelled := extract.New(&fakeTranscoder{supported: true, err: context.Canceled}, fakeProber{result: twoTrackProbe()})
	err = cancelled.Extract(ctx, writeInput(t), output, extract.FormatWAV, nil)
	if !errors.Is(err, services.ErrExtractionCancelled) {
		t.Fatalf("expected ErrExtractionCancelled, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for _, input := range []string{"m4a", ".WAV", "flac", " mp3 "} {
		if _, ok := extract.ParseFormat(input); !ok {
			t.Errorf("expected %q to be supported", input)
		}
	}
	if _, ok := extract.ParseFormat("ogg"); ok {
		t.Error("expected ogg to be unsupported")
	}
	if got := extract.FormatM4A.Extension(); got != ".m4a" {
		t.Errorf("Extension = %q", got)
	}
}

func TestExtractMessagesAreDistinct(t *testing.T) {
	messages := []string{extract.MessageAnalyzing, extract.MessageExtracting, extract.MessageConverting, extract.MessageFinalizing}
	seen := map[string]bool{}
	for _, m := range messages {
		if seen[m] || !strings.HasSuffix(m, "…") {
			t.Fatalf("unexpected message set %v", messages)
		}
		seen[m] = true
	}
}
