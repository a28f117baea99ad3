// Package ffprobe runs ffprobe and decodes the subset of its JSON report that
// audio extraction and duration measurement need: the audio streams with their
// language tags, and the container duration.
package ffprobe
