package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"murmur/internal/services"
	"murmur/internal/transcript"
)

// Encoder serializes transcription results. Output depends only on the result
// and format, except for the JSON generatedAt field which comes from Now.
type Encoder struct {
	Now func() time.Time
}

// NewEncoder returns an Encoder stamped with the wall clock.
func NewEncoder() Encoder {
	return Encoder{Now: time.Now}
}

// Encode serializes result using the wall clock for JSON timestamps.
func Encode(result transcript.Result, format Format) (string, error) {
	return NewEncoder().Encode(result, format)
}

// Encode serializes result in the requested format. An empty segment list is
// valid for every format.
func (e Encoder) Encode(result transcript.Result, format Format) (string, error) {
	switch format {
	case FormatText:
		return result.FullText, nil
	case FormatJSON:
		return e.encodeJSON(result)
	case FormatSRT:
		return encodeSRT(result.Segments), nil
	case FormatVTT:
		return encodeVTT(result.Segments), nil
	default:
		return "", services.Wrap(services.ErrUnsupportedFormat, "output", "encode", fmt.Sprintf("%q", string(format)), nil)
	}
}

func (e Encoder) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// jsonDocument fields are declared in key order so the encoded object has
// sorted keys.
type jsonDocument struct {
	AverageConfidence float64       `json:"averageConfidence"`
	Duration          float64       `json:"duration"`
	GeneratedAt       string        `json:"generatedAt"`
	IsOnDevice        bool          `json:"isOnDevice"`
	Language          string        `json:"language"`
	SegmentCount      int           `json:"segmentCount"`
	Segments          []jsonSegment `json:"segments"`
	Text              string        `json:"text"`
}

type jsonSegment struct {
	Confidence float64 `json:"confidence"`
	EndTime    float64 `json:"endTime"`
	StartTime  float64 `json:"startTime"`
	Text       string  `json:"text"`
}

func (e Encoder) encodeJSON(result transcript.Result) (string, error) {
	doc := jsonDocument{
		AverageConfidence: result.AverageConfidence(),
		Duration:          result.Duration,
		GeneratedAt:       e.now().UTC().Format(time.RFC3339),
		IsOnDevice:        result.IsOnDevice,
		Language:          result.Language,
		SegmentCount:      len(result.Segments),
		Segments:          make([]jsonSegment, 0, len(result.Segments)),
		Text:              result.FullText,
	}
	for _, segment := range result.Segments {
		doc.Segments = append(doc.Segments, jsonSegment{
			Confidence: segment.Confidence,
			EndTime:    segment.EndTime,
			StartTime:  segment.StartTime,
			Text:       segment.Text,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", services.Wrap(services.ErrTranscriptionFailed, "output", "encode json", "", err)
	}
	return buf.String(), nil
}

// DecodeJSON reads a document produced by the JSON encoding back into a
// Result, along with its generatedAt stamp.
func DecodeJSON(data []byte) (transcript.Result, time.Time, error) {
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return transcript.Result{}, time.Time{}, fmt.Errorf("decode transcript json: %w", err)
	}
	generatedAt, err := time.Parse(time.RFC3339, doc.GeneratedAt)
	if err != nil {
		return transcript.Result{}, time.Time{}, fmt.Errorf("decode transcript json: generatedAt: %w", err)
	}
	result := transcript.Result{
		Segments:   make([]transcript.Segment, 0, len(doc.Segments)),
		FullText:   doc.Text,
		Duration:   doc.Duration,
		Language:   doc.Language,
		IsOnDevice: doc.IsOnDevice,
	}
	for _, segment := range doc.Segments {
		result.Segments = append(result.Segments, transcript.Segment{
			Text:       segment.Text,
			StartTime:  segment.StartTime,
			EndTime:    segment.EndTime,
			Confidence: segment.Confidence,
		})
	}
	return result, generatedAt, nil
}

func encodeSRT(segments []transcript.Segment) string {
	var sb strings.Builder
	for i, segment := range segments {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", FormatSRTTimestamp(segment.StartTime), FormatSRTTimestamp(segment.EndTime))
		sb.WriteString(cueText(segment.Text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func encodeVTT(segments []transcript.Segment) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, segment := range segments {
		fmt.Fprintf(&sb, "%s --> %s\n", FormatVTTTimestamp(segment.StartTime), FormatVTTTimestamp(segment.EndTime))
		sb.WriteString(cueText(segment.Text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// cueText keeps a cue payload on consecutive lines; a blank line would end
// the cue early.
func cueText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}
