package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// showEntries limits ffprobe output to the fields murmur reads.
const showEntries = "format=filename,format_name,duration:" +
	"stream=index,codec_name,codec_type,channels,sample_rate,duration:" +
	"stream_tags=language,LANGUAGE,language_ietf,lang,LANG,title"

// Result is the decoded ffprobe report for one file.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one elementary stream of the container.
type Stream struct {
	Index      int               `json:"index"`
	CodecName  string            `json:"codec_name"`
	CodecType  string            `json:"codec_type"`
	Channels   int               `json:"channels"`
	SampleRate string            `json:"sample_rate"`
	Duration   string            `json:"duration"`
	Tags       map[string]string `json:"tags"`
}

// IsAudio reports whether the stream carries audio.
func (s Stream) IsAudio() bool {
	return strings.EqualFold(s.CodecType, "audio")
}

// Format is the container section of the report.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Inspector runs ffprobe. An empty Binary means "ffprobe" from PATH.
type Inspector struct {
	Binary string
}

// Probe inspects path and decodes the report. ffprobe's stderr is folded
// into the error when the process fails.
func (i Inspector) Probe(ctx context.Context, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe: empty path")
	}
	binary := strings.TrimSpace(i.Binary)
	if binary == "" {
		binary = "ffprobe"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error", "-hide_banner",
		"-show_entries", showEntries,
		"-of", "json", "--", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, detail)
		}
		return Result{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return Parse(stdout.Bytes())
}

// Parse decodes a JSON report.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe: decode report: %w", err)
	}
	return result, nil
}

// AudioStreams returns the audio streams in container order.
func (r Result) AudioStreams() []Stream {
	var out []Stream
	for _, s := range r.Streams {
		if s.IsAudio() {
			out = append(out, s)
		}
	}
	return out
}

// AudioDurationSeconds is the container duration, or the longest audio
// stream when the container reports none. Unknown durations are 0.
func (r Result) AudioDurationSeconds() float64 {
	if d := seconds(r.Format.Duration); d > 0 {
		return d
	}
	var longest float64
	for _, s := range r.AudioStreams() {
		longest = max(longest, seconds(s.Duration))
	}
	return longest
}

// seconds parses an ffprobe duration field. "N/A", blanks and negative
// values are 0.
func seconds(field string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil || v < 0 || v != v {
		return 0
	}
	return v
}
