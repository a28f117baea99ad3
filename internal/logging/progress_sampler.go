package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when the phase message changes or the fraction crosses a bucket boundary.
type ProgressSampler struct {
	bucketSize  float64
	lastMessage string
	lastBucket  int
}

// NewProgressSampler constructs a sampler that emits when the fraction crosses
// bucket boundaries (default 0.1) or when the message changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 || bucketSize > 1 {
		bucketSize = 0.1
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event should be logged. A fraction of
// zero after earlier progress is a reset (cancellation) and always emits.
func (s *ProgressSampler) ShouldLog(fraction float64, message string) bool {
	if s == nil {
		return true
	}
	message = strings.TrimSpace(message)
	emit := false
	if message != "" && message != s.lastMessage {
		s.lastMessage = message
		emit = true
	}
	if fraction <= 0 && s.lastBucket > 0 {
		s.lastBucket = 0
		return true
	}
	// Epsilon keeps 0.3/0.1 from landing in bucket 2.
	bucket := int(fraction/s.bucketSize + 1e-9)
	if fraction >= 1 {
		bucket = int(1 / s.bucketSize)
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset clears the sampler state (e.g. when a new file starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastMessage = ""
	s.lastBucket = -1
}
