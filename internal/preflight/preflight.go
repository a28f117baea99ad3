package preflight

import (
	"context"

	"murmur/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks that must pass before a batch starts.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	if cfg.OutputDir != "" {
		results = append(results, CheckOutputDirectory(cfg.OutputDir))
	}
	if cfg.History {
		results = append(results, CheckDirectoryAccess("Data directory", config.DefaultDataDir()))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
