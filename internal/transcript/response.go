package transcript

// Span is engine-reported timing for part of the recognized text.
type Span struct {
	Text       string  `json:"text"`
	Timestamp  float64 `json:"timestamp"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
}

// Response is one recognition update from an engine. Engines may stream any
// number of partial responses before exactly one with Final set.
type Response struct {
	Final bool   `json:"final"`
	Text  string `json:"text"`
	Spans []Span `json:"segments,omitempty"`
}
