package recognition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"murmur/internal/media/ffprobe"
)

// DurationProber measures the length of an audio file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// MediaProber is the subset of ffprobe inspection needed for durations.
type MediaProber interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// AudioDurationProber reads WAV headers directly and falls back to a media
// prober for every other container.
type AudioDurationProber struct {
	Media MediaProber
}

// Duration implements DurationProber.
func (p AudioDurationProber) Duration(ctx context.Context, path string) (float64, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		seconds, err := WAVDuration(path)
		if err == nil && seconds > 0 {
			return seconds, nil
		}
	}
	if p.Media == nil {
		return 0, fmt.Errorf("measure %s: no media prober configured", path)
	}
	result, err := p.Media.Probe(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("measure %s: %w", path, err)
	}
	seconds := result.AudioDurationSeconds()
	if seconds <= 0 {
		return 0, fmt.Errorf("measure %s: duration unavailable", path)
	}
	return seconds, nil
}

// WAVDuration returns the playback length of a PCM WAV file.
func WAVDuration(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return 0, errors.New("not a valid wav file")
	}
	if err := decoder.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("read wav header: %w", err)
	}
	bytesPerSecond := int64(decoder.SampleRate) * int64(decoder.NumChans) * int64(decoder.BitDepth/8)
	if bytesPerSecond <= 0 {
		return 0, errors.New("wav header has no sample format")
	}
	return float64(decoder.PCMLen()) / float64(bytesPerSecond), nil
}
