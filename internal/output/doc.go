// Package output encodes transcription results as plain text, JSON, SRT, or
// WebVTT.
//
// Encoding is a pure function of the result and format. The one exception is
// the JSON generatedAt field, which records encode time; Encoder.Now can be
// replaced to make it deterministic. Times are rounded to the nearest
// millisecond in subtitle formats.
package output
