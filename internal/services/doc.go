// Package services defines shared utilities consumed by the transcription
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, input files, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures into
//     the user-facing error kinds (Kind, Describe).
//
// Subpackages adapt host capabilities (WhisperX, external recognizer
// executables) to the recognition engine contract.
package services
