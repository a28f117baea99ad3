package permission

import (
	"context"
	"strings"
	"sync"

	"murmur/internal/services"
)

// Status is the authorization state for speech recognition.
type Status int

const (
	StatusNotDetermined Status = iota
	StatusAuthorized
	StatusDenied
	StatusRestricted
)

var statusNames = map[Status]string{
	StatusNotDetermined: "not-determined",
	StatusAuthorized:    "authorized",
	StatusDenied:        "denied",
	StatusRestricted:    "restricted",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStatus maps a status name back to a Status. Unknown names are
// treated as not determined.
func ParseStatus(value string) Status {
	value = strings.ToLower(strings.TrimSpace(value))
	for status, name := range statusNames {
		if name == value {
			return status
		}
	}
	return StatusNotDetermined
}

// Authorizer reports and requests speech recognition permission.
type Authorizer interface {
	Status(ctx context.Context) (Status, error)
	// Request asks for permission. It may return StatusNotDetermined when no
	// decision could be obtained.
	Request(ctx context.Context) (Status, error)
}

// Gate checks permission once per process and remembers the outcome. A check
// interrupted by context cancellation is not remembered.
type Gate struct {
	authorizer Authorizer

	mu       sync.Mutex
	resolved bool
	status   Status
	err      error
}

// NewGate wraps an Authorizer.
func NewGate(authorizer Authorizer) *Gate {
	return &Gate{authorizer: authorizer}
}

// Check resolves the permission state on first use and returns the cached
// result afterwards. A nil Gate always passes.
func (g *Gate) Check(ctx context.Context) error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resolved {
		return g.err
	}
	status, err := g.resolve(ctx)
	if services.IsCancellation(err) {
		return err
	}
	g.status, g.err, g.resolved = status, err, true
	return err
}

// Status returns the status recorded by Check, or StatusNotDetermined before
// the first check.
func (g *Gate) Status() Status {
	if g == nil {
		return StatusAuthorized
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func (g *Gate) resolve(ctx context.Context) (Status, error) {
	if g.authorizer == nil {
		return StatusNotDetermined, services.Wrap(services.ErrRecognitionUnavailable, "permission", "status", "no authorizer configured", nil)
	}
	status, err := g.authorizer.Status(ctx)
	if err != nil && ctx.Err() != nil {
		return StatusNotDetermined, services.Wrap(services.ErrCancelled, "permission", "status", "", ctx.Err())
	}
	if err != nil {
		return StatusNotDetermined, services.Wrap(services.ErrRecognitionUnavailable, "permission", "status", "", err)
	}
	if status == StatusNotDetermined {
		status, err = g.authorizer.Request(ctx)
		if err != nil && ctx.Err() != nil {
			return StatusNotDetermined, services.Wrap(services.ErrCancelled, "permission", "request", "", ctx.Err())
		}
		if err != nil {
			return StatusNotDetermined, services.Wrap(services.ErrPermissionUndetermined, "permission", "request", "", err)
		}
	}
	return status, errorFor(status)
}

func errorFor(status Status) error {
	switch status {
	case StatusAuthorized:
		return nil
	case StatusDenied:
		return services.Wrap(services.ErrPermissionDenied, "permission", "check", "", nil)
	case StatusRestricted:
		return services.Wrap(services.ErrPermissionRestricted, "permission", "check", "", nil)
	default:
		return services.Wrap(services.ErrPermissionUndetermined, "permission", "check", "", nil)
	}
}
