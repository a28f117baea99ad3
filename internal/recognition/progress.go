package recognition

import (
	"math"
	"time"
)

// ProgressFunc receives progress fractions in [0, 1] with a status message.
type ProgressFunc func(fraction float64, message string)

// Progress messages.
const (
	MessagePreparing    = "Preparing…"
	MessageLoadingAudio = "Loading audio…"
	MessageTranscribing = "Transcribing…"
	MessageFinalizing   = "Processing final results…"
	MessageComplete     = "Complete!"
	MessageCancelled    = "Cancelled"
)

// ProgressModel holds the constants of the synthetic progress curve shown
// while the engine works. The engine reports only discrete results, so the
// fraction in between is estimated from the audio duration.
type ProgressModel struct {
	Start          float64
	Target         float64
	Nudge          float64
	Ceiling        float64
	Curve          float64
	DurationFactor float64
	MinEstimate    time.Duration
	Interval       time.Duration
	FinalValue     float64
	FinalHold      time.Duration
}

// DefaultProgressModel returns the standard curve.
func DefaultProgressModel() ProgressModel {
	return ProgressModel{
		Start:          0.3,
		Target:         0.85,
		Nudge:          0.05,
		Ceiling:        0.9,
		Curve:          3.0,
		DurationFactor: 0.5,
		MinEstimate:    5 * time.Second,
		Interval:       100 * time.Millisecond,
		FinalValue:     0.95,
		FinalHold:      300 * time.Millisecond,
	}
}

// Estimate returns the expected processing time for audio of the given
// length in seconds.
func (m ProgressModel) Estimate(audioSeconds float64) time.Duration {
	if audioSeconds < 0 || math.IsNaN(audioSeconds) || math.IsInf(audioSeconds, 0) {
		audioSeconds = 0
	}
	estimate := time.Duration(audioSeconds * m.DurationFactor * float64(time.Second))
	if estimate < m.MinEstimate {
		estimate = m.MinEstimate
	}
	return estimate
}

// At returns the synthetic progress after elapsed time toward target. The
// value stays strictly below Ceiling.
func (m ProgressModel) At(elapsed, estimate time.Duration, target float64) float64 {
	if estimate <= 0 {
		estimate = m.MinEstimate
	}
	if elapsed < 0 {
		elapsed = 0
	}
	ratio := float64(elapsed) / float64(estimate)
	p := m.Start + (target-m.Start)*(1-math.Exp(-m.Curve*ratio))
	if p >= m.Ceiling {
		p = math.Nextafter(m.Ceiling, 0)
	}
	if p < m.Start {
		p = m.Start
	}
	return p
}

// Nudged returns target raised by Nudge, capped at Ceiling.
func (m ProgressModel) Nudged(target float64) float64 {
	return math.Min(target+m.Nudge, m.Ceiling)
}
