package output

import (
	"fmt"
	"strings"

	"murmur/internal/services"
)

// Format identifies a transcript encoding.
type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
)

// Formats returns every supported format in display order.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatSRT, FormatVTT}
}

// ParseFormat maps a format identifier to a Format. Matching ignores case
// and surrounding whitespace; anything else is rejected.
func ParseFormat(value string) (Format, error) {
	candidate := Format(strings.ToLower(strings.TrimSpace(value)))
	for _, f := range Formats() {
		if candidate == f {
			return f, nil
		}
	}
	return "", services.Wrap(services.ErrUnsupportedFormat, "output", "parse format", fmt.Sprintf("%q", value), nil)
}

// Extension returns the file extension for the format, without a dot.
func (f Format) Extension() string {
	return string(f)
}

func (f Format) String() string {
	return string(f)
}
