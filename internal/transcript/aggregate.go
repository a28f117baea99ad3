package transcript

import (
	"math"
	"sort"
	"strings"
)

// Aggregate converts a final engine response into a Result.
//
// Spans map one-to-one onto segments. When the engine reports no spans but
// some text, a single segment covering [0, measuredDuration] with confidence
// 1.0 stands in for them. Blank text with no spans yields no segments.
// measuredDuration of zero or less means unknown; the result then takes its
// duration from the last segment end.
func Aggregate(raw Response, measuredDuration float64, language string, onDevice bool) Result {
	duration := measuredDuration
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		duration = 0
	}

	result := Result{
		FullText:   raw.Text,
		Language:   language,
		IsOnDevice: onDevice,
	}

	switch {
	case len(raw.Spans) > 0:
		result.Segments = make([]Segment, 0, len(raw.Spans))
		for _, span := range raw.Spans {
			result.Segments = append(result.Segments, segmentFromSpan(span))
		}
		sort.SliceStable(result.Segments, func(i, j int) bool {
			return result.Segments[i].StartTime < result.Segments[j].StartTime
		})
	case strings.TrimSpace(raw.Text) != "":
		result.Segments = []Segment{{
			Text:       raw.Text,
			StartTime:  0,
			EndTime:    duration,
			Confidence: 1.0,
		}}
	default:
		result.Segments = []Segment{}
	}

	if duration == 0 {
		for _, segment := range result.Segments {
			if segment.EndTime > duration {
				duration = segment.EndTime
			}
		}
	}
	result.Duration = duration
	return result
}

func segmentFromSpan(span Span) Segment {
	start := finite(span.Timestamp)
	if start < 0 {
		start = 0
	}
	length := finite(span.Duration)
	if length < 0 {
		length = 0
	}
	return Segment{
		Text:       span.Text,
		StartTime:  start,
		EndTime:    start + length,
		Confidence: ClampConfidence(span.Confidence),
	}
}

// ClampConfidence limits a confidence score to [0, 1]. NaN becomes 0.
func ClampConfidence(value float64) float64 {
	switch {
	case math.IsNaN(value), value < 0:
		return 0
	case value > 1:
		return 1
	default:
		return value
	}
}

func finite(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}
