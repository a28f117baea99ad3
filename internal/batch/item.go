package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"murmur/internal/transcript"
)

// Status is the lifecycle state of one input file.
type Status string

const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further work will happen for the item.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCancelled
}

// ErrInvalidTransition is returned when an item is moved to a state its
// current state does not allow.
var ErrInvalidTransition = errors.New("invalid item transition")

// Kind classifies an input path by extension.
type Kind string

const (
	KindAudio       Kind = "audio"
	KindVideo       Kind = "video"
	KindUnsupported Kind = "unsupported"
)

var (
	videoExtensions = map[string]struct{}{
		".mp4": {}, ".mov": {}, ".m4v": {}, ".mkv": {}, ".avi": {}, ".webm": {},
	}
	audioExtensions = map[string]struct{}{
		".wav": {}, ".m4a": {}, ".mp3": {}, ".aac": {}, ".flac": {}, ".caf": {}, ".aiff": {}, ".ogg": {},
	}
)

// Classify returns the input kind for path based on its extension.
func Classify(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo
	}
	if _, ok := audioExtensions[ext]; ok {
		return KindAudio
	}
	return KindUnsupported
}

// Item is the bookkeeping record for one input file.
type Item struct {
	Path     string
	Kind     Kind
	Status   Status
	Progress float64
	Message  string
	// Err is the terminal error for StatusError and StatusCancelled items.
	Err error
	// Output is the written transcript path for StatusDone items.
	Output     string
	Result     transcript.Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewItem returns a pending item for path.
func NewItem(path string) Item {
	return Item{Path: path, Kind: Classify(path), Status: StatusPending}
}

// CanStart reports whether the item may be (re)queued.
func (i *Item) CanStart() bool {
	return i.Status == StatusPending || i.Status == StatusError || i.Status == StatusCancelled
}

// CanCancel reports whether the item may be cancelled.
func (i *Item) CanCancel() bool {
	return i.Status == StatusQueued || i.Status == StatusProcessing
}

// Queue moves a startable item to queued and clears any previous outcome.
func (i *Item) Queue() error {
	if !i.CanStart() {
		return i.invalid(StatusQueued)
	}
	i.Status = StatusQueued
	i.Progress = 0
	i.Message = ""
	i.Err = nil
	i.Output = ""
	i.Result = transcript.Result{}
	return nil
}

// Start moves a queued item to processing.
func (i *Item) Start(now time.Time) error {
	if i.Status != StatusQueued {
		return i.invalid(StatusProcessing)
	}
	i.Status = StatusProcessing
	i.StartedAt = now
	return nil
}

// Complete records a successful transcription.
func (i *Item) Complete(now time.Time, output string, result transcript.Result) error {
	if i.Status != StatusProcessing {
		return i.invalid(StatusDone)
	}
	i.Status = StatusDone
	i.Progress = 1
	i.Output = output
	i.Result = result
	i.FinishedAt = now
	return nil
}

// Fail records err as the item's terminal error. Queued items may fail
// without starting, which happens when the batch is aborted.
func (i *Item) Fail(now time.Time, err error) error {
	if !i.CanCancel() {
		return i.invalid(StatusError)
	}
	i.Status = StatusError
	i.Err = err
	if err != nil {
		i.Message = err.Error()
	}
	i.FinishedAt = now
	return nil
}

// Cancel marks the item cancelled.
func (i *Item) Cancel(now time.Time, err error) error {
	if !i.CanCancel() {
		return i.invalid(StatusCancelled)
	}
	i.Status = StatusCancelled
	i.Err = err
	i.Progress = 0
	i.Message = "Cancelled"
	i.FinishedAt = now
	return nil
}

// Elapsed returns how long the item was processed.
func (i *Item) Elapsed() time.Duration {
	if i.StartedAt.IsZero() || i.FinishedAt.IsZero() {
		return 0
	}
	return i.FinishedAt.Sub(i.StartedAt)
}

func (i *Item) invalid(to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.Status, to)
}
