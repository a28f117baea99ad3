package services

import (
	"errors"
	"fmt"
	"strings"
)

// Error markers. Every failure surfaced to the user wraps exactly one of these
// so the CLI and the history ledger can classify it without inspecting
// engine-specific error values.
var (
	ErrFileNotFound           = errors.New("file not found")
	ErrUnsupportedFormat      = errors.New("unsupported format")
	ErrRecognitionUnavailable = errors.New("speech recognition unavailable")
	ErrPermissionDenied       = errors.New("speech recognition permission denied")
	ErrPermissionRestricted   = errors.New("speech recognition restricted")
	ErrPermissionUndetermined = errors.New("speech recognition permission not determined")
	ErrMediaEngine            = errors.New("media engine error")
	ErrTranscriptionFailed    = errors.New("transcription failed")
	ErrLanguageNotSupported   = errors.New("language not supported")
	ErrExtractionCancelled    = errors.New("extraction cancelled")
	ErrConfigInvalid          = errors.New("invalid configuration")
	ErrNoAudioTrack           = errors.New("no audio track")
	ErrTranscoderSession      = errors.New("transcoder session failed")
	ErrCancelled              = errors.New("cancelled")
)

type kindInfo struct {
	marker      error
	kind        string
	description string
}

// Order matters: the first marker matched by errors.Is wins.
var kinds = []kindInfo{
	{ErrFileNotFound, "file_not_found", "The input file could not be found."},
	{ErrUnsupportedFormat, "unsupported_format", "The file format is not supported."},
	{ErrRecognitionUnavailable, "recognition_unavailable", "Speech recognition is not available on this system."},
	{ErrPermissionDenied, "permission_denied", "Speech recognition permission was denied."},
	{ErrPermissionRestricted, "permission_restricted", "Speech recognition is restricted on this system."},
	{ErrPermissionUndetermined, "permission_undetermined", "Speech recognition permission has not been granted yet."},
	{ErrNoAudioTrack, "no_audio_track", "The media file contains no audio track."},
	{ErrTranscoderSession, "transcoder_session", "The media transcoder could not be started."},
	{ErrMediaEngine, "media_engine", "The media engine failed to process the file."},
	{ErrTranscriptionFailed, "transcription_failed", "Transcription failed."},
	{ErrLanguageNotSupported, "language_not_supported", "The requested language is not supported."},
	{ErrExtractionCancelled, "extraction_cancelled", "Audio extraction was cancelled."},
	{ErrCancelled, "cancelled", "Transcription was cancelled."},
	{ErrConfigInvalid, "config_invalid", "The configuration is invalid."},
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTranscriptionFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short machine-readable classification for err, or "unknown"
// when err carries none of the markers.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, info := range kinds {
		if errors.Is(err, info.marker) {
			return info.kind
		}
	}
	return "unknown"
}

// Describe returns the stable human-readable description for err. The text
// depends only on the marker, never on the wrapped context; callers that want
// the path or engine output use err.Error() instead.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	for _, info := range kinds {
		if errors.Is(err, info.marker) {
			return info.description
		}
	}
	return "An unexpected error occurred."
}

// IsCancellation reports whether err represents a user-initiated cancel.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrExtractionCancelled)
}

// IsGateFailure reports whether err comes from the permission gate. These
// errors abort a whole batch because the gate is process-wide.
func IsGateFailure(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrPermissionRestricted) ||
		errors.Is(err, ErrPermissionUndetermined)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
