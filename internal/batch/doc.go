// Package batch runs the transcription pipeline over a list of input files.
//
// Files are processed strictly one after another. Video inputs are reduced to
// an audio track first, every file is handed to the recognition orchestrator,
// and the encoded transcript is written next to the input (or into the
// configured output directory) under an advisory lock. The permission gate is
// consulted once before the first file; a gate failure aborts the whole run.
//
// The Runner never chooses a process exit code. Report carries per-file
// outcomes and counts so the CLI can decide.
package batch
