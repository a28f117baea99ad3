// Package deps locates the external programs murmur shells out to.
package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement names an external program and why it is needed.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the lookup outcome for one Requirement. Path is the resolved
// executable when Available.
type Status struct {
	Requirement
	Path      string
	Available bool
	Detail    string
}

// Check resolves a single requirement against PATH. Commands containing a
// path separator are checked as-is.
func Check(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	switch {
	case err == nil:
		status.Path = path
		status.Available = true
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		status.Detail = fmt.Sprintf("%s not found", req.Command)
	default:
		status.Detail = fmt.Sprintf("%s: %v", req.Command, err)
	}
	return status
}

// CheckAll resolves every requirement, preserving order.
func CheckAll(reqs []Requirement) []Status {
	out := make([]Status, len(reqs))
	for i, req := range reqs {
		out[i] = Check(req)
	}
	return out
}

// Environment overrides for the media binaries.
const (
	FFmpegEnv  = "MURMUR_FFMPEG"
	FFprobeEnv = "MURMUR_FFPROBE"
)

// FFmpegPath is $MURMUR_FFMPEG, or "ffmpeg" to be found on PATH.
func FFmpegPath() string {
	if v := strings.TrimSpace(os.Getenv(FFmpegEnv)); v != "" {
		return v
	}
	return "ffmpeg"
}

// FFprobePath is $MURMUR_FFPROBE, else the ffprobe installed next to the
// resolved ffmpeg, else "ffprobe" to be found on PATH. Keeping both tools
// from the same directory avoids mixing builds.
func FFprobePath() string {
	if v := strings.TrimSpace(os.Getenv(FFprobeEnv)); v != "" {
		return v
	}
	if sibling, ok := siblingOf(FFmpegPath(), "ffprobe"); ok {
		return sibling
	}
	return "ffprobe"
}

func siblingOf(command, name string) (string, bool) {
	resolved, err := exec.LookPath(command)
	if err != nil {
		return "", false
	}
	candidate := filepath.Join(filepath.Dir(resolved), name+filepath.Ext(resolved))
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return "", false
	}
	return candidate, true
}
