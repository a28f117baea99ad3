package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"murmur/internal/config"
	"murmur/internal/permission"
	"murmur/internal/recognition"
	"murmur/internal/transcript"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_CreatedOnDemand(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected pass for creatable dir, got: %+v", result)
	}
}

func TestCheckDirectoryAccess_CreatedSeveralLevelsDeep(t *testing.T) {
	result := CheckDirectoryAccess("Data directory", filepath.Join(t.TempDir(), "data", "share", "murmur"))
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected pass for nested creatable dir, got: %+v", result)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", filepath.Join(blocker, "a", "b"))
	if result.Passed {
		t.Fatal("expected failure when the nearest existing ancestor is a file")
	}
	if !strings.Contains(result.Detail, "error:") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestRunAllAcceptsMissingDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", filepath.Join(t.TempDir(), "fresh", "share"))
	cfg := config.Default()
	if failed := Failed(RunAll(context.Background(), &cfg)); len(failed) != 0 {
		t.Fatalf("expected missing data home to pass, got %+v", failed)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAllChecksConfiguredDirectories(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	results := RunAll(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected output and data dir checks, got %+v", results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}

	cfg.OutputDir = ""
	cfg.History = false
	if results := RunAll(context.Background(), &cfg); len(results) != 0 {
		t.Fatalf("expected no checks, got %+v", results)
	}
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil for nil config")
	}
}

func TestCheckSystemDepsFollowsEngine(t *testing.T) {
	cfg := config.Default()
	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 3 || statuses[2].Command != "uvx" {
		t.Fatalf("expected ffmpeg, ffprobe and uvx, got %+v", statuses)
	}

	cfg.Engine = config.EngineExec
	cfg.EngineCommand = `"/opt/stt bin/recognize" --model tiny`
	statuses = CheckSystemDeps(&cfg)
	if len(statuses) != 3 || statuses[2].Command != "/opt/stt bin/recognize" {
		t.Fatalf("expected engine binary from command line, got %+v", statuses)
	}
}

type stubEngine struct {
	avail recognition.Availability
	err   error
}

func (s stubEngine) Name() string { return "stub" }
func (s stubEngine) Availability(context.Context, string) (recognition.Availability, error) {
	return s.avail, s.err
}
func (s stubEngine) Recognize(context.Context, recognition.Request, func(transcript.Response)) error {
	return nil
}

func TestCheckEngine(t *testing.T) {
	tests := []struct {
		name     string
		engine   recognition.Engine
		onDevice bool
		passed   bool
		contains string
	}{
		{"nil", nil, false, false, "no engine"},
		{"error", stubEngine{err: errors.New("boom")}, false, false, "boom"},
		{"unavailable", stubEngine{}, false, false, "unavailable"},
		{"unsupported", stubEngine{avail: recognition.Availability{Available: true}}, false, false, "not supported"},
		{"server only", stubEngine{avail: recognition.Availability{Available: true, Supported: true}}, true, true, "server-based only"},
		{"on device", stubEngine{avail: recognition.Availability{Available: true, Supported: true, OnDevice: true}}, true, true, "on-device"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckEngine(context.Background(), tt.engine, "de-DE", tt.onDevice)
			if result.Passed != tt.passed || !strings.Contains(result.Detail, tt.contains) {
				t.Fatalf("unexpected result %+v", result)
			}
		})
	}
}

type stubAuthorizer struct {
	status permission.Status
}

func (s stubAuthorizer) Status(context.Context) (permission.Status, error)  { return s.status, nil }
func (s stubAuthorizer) Request(context.Context) (permission.Status, error) { return s.status, nil }

func TestCheckPermission(t *testing.T) {
	if r := CheckPermission(context.Background(), stubAuthorizer{permission.StatusAuthorized}); !r.Passed || r.Detail != "Granted" {
		t.Fatalf("unexpected authorized result %+v", r)
	}
	if r := CheckPermission(context.Background(), stubAuthorizer{permission.StatusDenied}); r.Passed || r.Detail != "Denied" {
		t.Fatalf("unexpected denied result %+v", r)
	}
	if r := CheckPermission(context.Background(), stubAuthorizer{permission.StatusNotDetermined}); !r.Passed {
		t.Fatalf("undetermined should not fail status, got %+v", r)
	}
}
