// Package transcript holds the transcription result model and the aggregator
// that builds it from raw engine responses.
//
// Segments are produced only by Aggregate. Result.AverageConfidence is a
// method rather than a field so it always reflects the current segments.
package transcript
