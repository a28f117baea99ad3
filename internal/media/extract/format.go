package extract

import "strings"

// Format is an audio container the extractor can write.
type Format string

const (
	FormatM4A  Format = "m4a"
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
	FormatMP3  Format = "mp3"
)

var codecArgs = map[Format][]string{
	FormatM4A:  {"-c:a", "aac", "-b:a", "192k"},
	FormatWAV:  {"-c:a", "pcm_s16le"},
	FormatFLAC: {"-c:a", "flac"},
	FormatMP3:  {"-c:a", "libmp3lame", "-q:a", "2"},
}

// ParseFormat maps a file extension (with or without the dot) to a Format.
func ParseFormat(value string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), ".")))
	return f, f.Valid()
}

// Valid reports whether the format is one the extractor knows how to write.
func (f Format) Valid() bool {
	_, ok := codecArgs[f]
	return ok
}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}
