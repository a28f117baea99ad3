package permission

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// RestrictedEnv, when set to "1", reports speech recognition as restricted
// regardless of stored consent. Administrators use it to lock murmur down.
const RestrictedEnv = "MURMUR_SPEECH_RESTRICTED"

const promptText = "murmur sends audio to a speech recognizer to transcribe it. Allow speech recognition? [y/N]: "

// LocalAuthorizer grants permission from stored consent, an interactive
// prompt, or an explicit auto-grant.
type LocalAuthorizer struct {
	Store       *ConsentStore
	AutoGrant   bool
	Interactive bool
	In          io.Reader
	Out         io.Writer
	Getenv      func(string) string
}

// NewLocalAuthorizer prompts on stdin/stderr when stdin is a terminal.
func NewLocalAuthorizer(store *ConsentStore, autoGrant bool) *LocalAuthorizer {
	fd := os.Stdin.Fd()
	return &LocalAuthorizer{
		Store:       store,
		AutoGrant:   autoGrant,
		Interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		In:          os.Stdin,
		Out:         os.Stderr,
		Getenv:      os.Getenv,
	}
}

func (a *LocalAuthorizer) restricted() bool {
	getenv := a.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return strings.TrimSpace(getenv(RestrictedEnv)) == "1"
}

// Status implements Authorizer.
func (a *LocalAuthorizer) Status(context.Context) (Status, error) {
	if a.restricted() {
		return StatusRestricted, nil
	}
	if a.Store == nil {
		return StatusNotDetermined, nil
	}
	status, _, err := a.Store.Load()
	return status, err
}

// Request implements Authorizer. Without a terminal or auto-grant the status
// stays not determined.
func (a *LocalAuthorizer) Request(ctx context.Context) (Status, error) {
	if a.restricted() {
		return StatusRestricted, nil
	}
	if a.AutoGrant {
		return a.record(StatusAuthorized)
	}
	if !a.Interactive || a.In == nil {
		return StatusNotDetermined, nil
	}

	answer, err := a.prompt(ctx)
	if err != nil {
		return StatusNotDetermined, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return a.record(StatusAuthorized)
	default:
		return a.record(StatusDenied)
	}
}

func (a *LocalAuthorizer) prompt(ctx context.Context) (string, error) {
	if a.Out != nil {
		fmt.Fprint(a.Out, promptText)
	}
	type reply struct {
		line string
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		line, err := bufio.NewReader(a.In).ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- reply{line, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err == io.EOF {
			return "", nil
		}
		return r.line, r.err
	}
}

func (a *LocalAuthorizer) record(status Status) (Status, error) {
	if a.Store == nil {
		return status, nil
	}
	if err := a.Store.Save(status); err != nil {
		return status, err
	}
	return status, nil
}
