// Package whisperx runs WhisperX locally as a recognition engine.
//
// WhisperX is launched through uvx, writes a JSON transcript into a scratch
// directory, and the engine turns that file into a single final response.
// Every run is local, so the engine always reports on-device recognition for
// the languages it knows.
package whisperx
