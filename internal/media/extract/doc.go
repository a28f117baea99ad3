// Package extract pulls the audio out of video containers so it can be
// handed to a speech recognizer.
//
// Extractor validates the input, probes its audio streams, and delegates the
// conversion to a Transcoder. FFmpegTranscoder is the production Transcoder:
// it maps a single stream directly, mixes several streams with amix, and
// turns ffmpeg's -progress output into fractions. Progress reported to
// callers is rescaled to [0.1, 1.0] and labelled by phase.
package extract
