// Package preflight provides readiness checks for the binaries, directories,
// recognition engine, and permission state murmur depends on.
//
// The CLI "murmur status" command runs every check and renders the results.
// The transcribe command runs RunAll before the first file so an unwritable
// output directory fails fast instead of after a long recognition.
package preflight
