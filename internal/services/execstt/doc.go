// Package execstt adapts an external speech-to-text command into a
// recognition engine.
//
// The command line comes from configuration and is split with shell quoting
// rules. Invoked with --capabilities it must print one JSON object describing
// its languages; invoked with --audio and --language it streams one JSON
// response per line, partial responses first and a final response last.
package execstt
