// Package logging assembles structured slog loggers and formatting helpers used
// across murmur.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, input files, and stages. The package also provides a
// no-op logger for tests and wiring code that cannot fail, plus a progress
// sampler that keeps synthetic progress from flooding debug output.
package logging
