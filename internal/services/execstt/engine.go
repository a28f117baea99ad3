package execstt

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"murmur/internal/language"
	"murmur/internal/recognition"
	"murmur/internal/services"
	"murmur/internal/transcript"
)

// Capabilities is the document printed by `<command> --capabilities`.
type Capabilities struct {
	Available         bool     `json:"available"`
	Languages         []string `json:"languages"`
	OnDeviceLanguages []string `json:"onDeviceLanguages"`
}

// Engine runs a configured command for every recognition request.
type Engine struct {
	cmd []string
}

// New parses command with shell quoting rules.
func New(command string) (*Engine, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = true
	args, err := parser.Parse(command)
	if err != nil {
		return nil, services.Wrap(services.ErrConfigInvalid, "config", "engineCommand", "parse command", err)
	}
	if len(args) == 0 {
		return nil, services.Wrap(services.ErrConfigInvalid, "config", "engineCommand", "command is empty", nil)
	}
	return &Engine{cmd: args}, nil
}

// Name implements recognition.Engine.
func (e *Engine) Name() string { return "exec" }

// Command returns the parsed argv.
func (e *Engine) Command() []string {
	return append([]string(nil), e.cmd...)
}

// Capabilities queries the command for its language support.
func (e *Engine) Capabilities(ctx context.Context) (Capabilities, error) {
	command := e.command(ctx, "--capabilities")
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return Capabilities{}, fmt.Errorf("capabilities: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	var caps Capabilities
	if err := json.Unmarshal(stdout.Bytes(), &caps); err != nil {
		return Capabilities{}, fmt.Errorf("decode capabilities: %w", err)
	}
	return caps, nil
}

// Availability implements recognition.Engine. A language listed only as
// on-device still counts as supported.
func (e *Engine) Availability(ctx context.Context, tag string) (recognition.Availability, error) {
	caps, err := e.Capabilities(ctx)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
			return recognition.Availability{}, nil
		}
		return recognition.Availability{}, err
	}
	if !caps.Available {
		return recognition.Availability{}, nil
	}
	onDevice := language.Match(tag, caps.OnDeviceLanguages)
	return recognition.Availability{
		Available: true,
		Supported: onDevice || language.Match(tag, caps.Languages),
		OnDevice:  onDevice,
	}, nil
}

// Recognize implements recognition.Engine by streaming JSON lines from the
// command's stdout.
func (e *Engine) Recognize(ctx context.Context, req recognition.Request, onResponse func(transcript.Response)) error {
	args := []string{"--audio", req.AudioPath, "--language", req.Language}
	if req.OnDevice {
		args = append(args, "--on-device")
	}
	command := e.command(ctx, args...)
	var stderr bytes.Buffer
	command.Stderr = &stderr
	stdout, err := command.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrTranscriptionFailed, "exec", "stdout pipe", "", err)
	}
	if err := command.Start(); err != nil {
		return services.Wrap(services.ErrRecognitionUnavailable, "exec", "start", e.cmd[0], err)
	}

	var decodeErr error
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var resp transcript.Response
		if err := json.Unmarshal(line, &resp); err != nil {
			if decodeErr == nil {
				decodeErr = fmt.Errorf("decode response line: %w", err)
			}
			continue
		}
		onResponse(resp)
	}
	scanErr := scanner.Err()

	if err := command.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrTranscriptionFailed, "exec", "run", strings.TrimSpace(stderr.String()), err)
	}
	if scanErr != nil {
		return services.Wrap(services.ErrTranscriptionFailed, "exec", "read output", "", scanErr)
	}
	if decodeErr != nil {
		return services.Wrap(services.ErrTranscriptionFailed, "exec", "decode output", "", decodeErr)
	}
	return nil
}

func (e *Engine) command(ctx context.Context, extra ...string) *exec.Cmd {
	args := append(append([]string{}, e.cmd[1:]...), extra...)
	return exec.CommandContext(ctx, e.cmd[0], args...) //nolint:gosec
}
