// Command murmur transcribes audio and video files into text, JSON, SRT, or
// WebVTT transcripts.
//
// Passing files to the root command runs a batch: each file is checked
// against the speech recognition permission gate, audio is extracted from
// video containers, the configured engine recognizes the speech, and the
// transcript is written next to the input (or into --output-dir). Subcommands
// manage configuration, consent, run history, and environment checks.
package main
