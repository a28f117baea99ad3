package services_test

import (
	"errors"
	"strings"
	"testing"

	"murmur/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrMediaEngine, "extract", "ffmpeg", "exit status 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrMediaEngine) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extract", "ffmpeg", "exit status 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestDescribeIsStablePerKind(t *testing.T) {
	a := services.Wrap(services.ErrFileNotFound, "batch", "stat", "/tmp/a.wav", nil)
	b := services.Wrap(services.ErrFileNotFound, "extract", "stat", "/other/b.mov", errors.New("enoent"))
	if services.Describe(a) != services.Describe(b) {
		t.Fatalf("expected identical descriptions, got %q and %q", services.Describe(a), services.Describe(b))
	}
	if strings.Contains(services.Describe(a), "/tmp/a.wav") {
		t.Fatalf("description must not leak context: %q", services.Describe(a))
	}
	if services.Kind(a) != "file_not_found" {
		t.Fatalf("unexpected kind %q", services.Kind(a))
	}
}

func TestEveryMarkerHasDescription(t *testing.T) {
	markers := []error{
		services.ErrFileNotFound,
		services.ErrUnsupportedFormat,
		services.ErrRecognitionUnavailable,
		services.ErrPermissionDenied,
		services.ErrPermissionRestricted,
		services.ErrPermissionUndetermined,
		services.ErrMediaEngine,
		services.ErrTranscriptionFailed,
		services.ErrLanguageNotSupported,
		services.ErrExtractionCancelled,
		services.ErrConfigInvalid,
		services.ErrNoAudioTrack,
		services.ErrTranscoderSession,
		services.ErrCancelled,
	}
	seen := map[string]bool{}
	for _, marker := range markers {
		kind := services.Kind(marker)
		if kind == "unknown" || kind == "" {
			t.Fatalf("marker %v has no kind", marker)
		}
		if seen[kind] {
			t.Fatalf("duplicate kind %q", kind)
		}
		seen[kind] = true
		if services.Describe(marker) == "An unexpected error occurred." {
			t.Fatalf("marker %v has no description", marker)
		}
	}
}

func TestClassificationHelpers(t *testing.T) {
	if !services.IsGateFailure(services.Wrap(services.ErrPermissionDenied, "gate", "", "", nil)) {
		t.Fatal("expected denied to be a gate failure")
	}
	if services.IsGateFailure(services.ErrMediaEngine) {
		t.Fatal("media engine error is not a gate failure")
	}
	if !services.IsCancellation(services.ErrExtractionCancelled) || !services.IsCancellation(services.ErrCancelled) {
		t.Fatal("expected cancellation markers to be recognized")
	}
	if services.Kind(errors.New("plain")) != "unknown" {
		t.Fatal("expected unknown kind for unmarked error")
	}
	if services.Kind(nil) != "" || services.Describe(nil) != "" {
		t.Fatal("expected empty classification for nil")
	}
}
