package recognition

import (
	"context"

	"murmur/internal/transcript"
)

// Request identifies the audio to recognize.
type Request struct {
	AudioPath string
	Language  string
	OnDevice  bool
}

// Availability describes what an engine can do for one language.
type Availability struct {
	// Available is false when the engine cannot run at all.
	Available bool
	// Supported reports whether the language can be recognized in any mode.
	Supported bool
	// OnDevice reports whether the language can be recognized locally.
	OnDevice bool
}

// Engine is the speech recognition capability. Recognize streams zero or
// more partial responses followed by exactly one final response, then
// returns. It must stop promptly when ctx is cancelled.
type Engine interface {
	Name() string
	Availability(ctx context.Context, language string) (Availability, error)
	Recognize(ctx context.Context, req Request, onResponse func(transcript.Response)) error
}
