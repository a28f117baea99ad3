package output

import (
	"fmt"
	"strings"
)

// Cue is one timed entry read back from SRT or WebVTT output.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// ParseCues reads the cues from SRT or WebVTT content. The format is chosen
// from the WEBVTT header. Blocks without a timing line are skipped.
func ParseCues(content string) ([]Cue, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	parse := ParseSRTTimestamp
	if strings.HasPrefix(content, "WEBVTT") {
		parse = ParseVTTTimestamp
	}

	var cues []Cue
	for _, block := range strings.Split(strings.TrimSpace(content), "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		timing := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 {
			continue
		}
		startText, endText, _ := strings.Cut(lines[timing], "-->")
		start, err := parse(startText)
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", len(cues)+1, err)
		}
		// WebVTT allows cue settings after the end time.
		endFields := strings.Fields(endText)
		if len(endFields) == 0 {
			return nil, fmt.Errorf("cue %d: missing end time", len(cues)+1)
		}
		end, err := parse(endFields[0])
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", len(cues)+1, err)
		}
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[timing+1:], "\n"),
		})
	}
	return cues, nil
}
