// Package recognition orchestrates speech recognition for one audio file at
// a time.
//
// The Orchestrator walks each request through the states idle,
// awaiting-permission, requesting, partial-result, final-result, and
// complete, with cancelled and failed as alternative endings. Engines only
// report discrete partial and final results, so while a request is in
// flight a ticker goroutine publishes a synthetic progress curve (see
// ProgressModel) that approaches, but never reaches, the completion range.
// The final result halts the ticker, the orchestrator briefly shows
// "Processing final results…", and then reports 1.0.
//
// Engines plug in through the Engine interface; see internal/services for
// the WhisperX and external-command implementations.
package recognition
