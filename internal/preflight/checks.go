package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"golang.org/x/sys/unix"

	"murmur/internal/config"
	"murmur/internal/deps"
	"murmur/internal/language"
	"murmur/internal/permission"
	"murmur/internal/recognition"
)

// CheckDirectoryAccess reports whether murmur can create files under path.
// A directory that does not exist yet passes when its nearest existing
// ancestor is a writable directory, since writers create it with MkdirAll.
func CheckDirectoryAccess(name, path string) Result {
	detail, ok := directoryState(path)
	return Result{Name: name, Passed: ok, Detail: path + " (" + detail + ")"}
}

func directoryState(path string) (string, bool) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		if ancestor, ok := nearestExistingDir(path); ok && unix.Access(ancestor, unix.W_OK|unix.X_OK) == nil {
			return "will be created", true
		}
		return "error: does not exist", false
	case err != nil:
		return fmt.Sprintf("error: stat: %v", err), false
	case !info.IsDir():
		return "error: is not a directory", false
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Sprintf("error: insufficient permissions: %v", err), false
	}
	return "read/write ok", true
}

// nearestExistingDir walks up from path to the first ancestor that exists.
// It reports false when that ancestor is not a directory.
func nearestExistingDir(path string) (string, bool) {
	dir := filepath.Clean(path)
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
		info, err := os.Stat(dir)
		if err == nil {
			return dir, info.IsDir()
		}
		if !os.IsNotExist(err) {
			return "", false
		}
	}
}

// CheckOutputDirectory checks the configured transcript destination.
func CheckOutputDirectory(path string) Result {
	return CheckDirectoryAccess("Output directory", path)
}

// CheckSystemDeps evaluates the external binaries the configured pipeline uses.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	ffmpeg := deps.FFmpegPath()
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Required to extract audio from video files",
		},
		{
			Name:        "FFprobe",
			Command:     deps.FFprobePath(),
			Description: "Required for media inspection and progress estimates",
		},
	}
	if cfg != nil {
		switch cfg.Engine {
		case config.EngineWhisperX:
			requirements = append(requirements, deps.Requirement{
				Name:        "uvx",
				Command:     "uvx",
				Description: "Required for WhisperX-driven transcription",
			})
		case config.EngineExec:
			requirements = append(requirements, deps.Requirement{
				Name:        "Recognizer",
				Command:     engineBinary(cfg.EngineCommand),
				Description: "Configured speech recognition command",
			})
		}
	}
	return deps.CheckAll(requirements)
}

func engineBinary(command string) string {
	args, err := shellwords.Parse(command)
	if err != nil || len(args) == 0 {
		return ""
	}
	return args[0]
}

// CheckEngine asks the recognition engine whether it can serve tag.
func CheckEngine(ctx context.Context, engine recognition.Engine, tag string, onDevice bool) Result {
	const name = "Speech recognition"
	if engine == nil {
		return Result{Name: name, Detail: "no engine configured"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	avail, err := engine.Availability(checkCtx, tag)
	display := language.DisplayName(tag)
	switch {
	case err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s: availability check failed (%v)", engine.Name(), err)}
	case !avail.Available:
		return Result{Name: name, Detail: fmt.Sprintf("%s: unavailable", engine.Name())}
	case !avail.Supported:
		return Result{Name: name, Detail: fmt.Sprintf("%s: %s not supported", engine.Name(), display)}
	case onDevice && !avail.OnDevice:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s: %s (server-based only)", engine.Name(), display)}
	case avail.OnDevice:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s: %s (on-device)", engine.Name(), display)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s: %s", engine.Name(), display)}
	}
}

// CheckPermission reports the recorded speech recognition consent.
func CheckPermission(ctx context.Context, authorizer permission.Authorizer) Result {
	const name = "Permission"
	if authorizer == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	status, err := authorizer.Status(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("status check failed (%v)", err)}
	}
	switch status {
	case permission.StatusAuthorized:
		return Result{Name: name, Passed: true, Detail: "Granted"}
	case permission.StatusNotDetermined:
		return Result{Name: name, Passed: true, Detail: "Not yet requested (prompted on first transcription)"}
	default:
		return Result{Name: name, Detail: strings.ToUpper(status.String()[:1]) + status.String()[1:]}
	}
}
