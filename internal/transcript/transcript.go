package transcript

// Segment is one recognized span of speech. Times are seconds from the start
// of the audio.
type Segment struct {
	Text       string
	StartTime  float64
	EndTime    float64
	Confidence float64
}

// Duration returns the length of the segment in seconds.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Result is the outcome of transcribing one file.
type Result struct {
	Segments []Segment
	// FullText is the engine-provided text. It is never rebuilt from Segments.
	FullText   string
	Duration   float64
	Language   string
	IsOnDevice bool
}

// AverageConfidence returns the mean segment confidence, or 0 when there are
// no segments. It is recomputed on every call.
func (r Result) AverageConfidence() float64 {
	if len(r.Segments) == 0 {
		return 0
	}
	total := 0.0
	for _, segment := range r.Segments {
		total += segment.Confidence
	}
	return total / float64(len(r.Segments))
}

// SegmentCount returns the number of segments.
func (r Result) SegmentCount() int {
	return len(r.Segments)
}
