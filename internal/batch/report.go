package batch

import "time"

// Report summarises one batch run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Items      []Item
	Succeeded  int
	Failed     int
	Cancelled  int
}

// ExitCode is 0 when every file succeeded and 1 otherwise.
func (r Report) ExitCode() int {
	if r.Failed > 0 || r.Cancelled > 0 {
		return 1
	}
	return 0
}

// Total returns the number of files in the batch.
func (r Report) Total() int {
	return len(r.Items)
}

func (r *Report) tally() {
	r.Succeeded, r.Failed, r.Cancelled = 0, 0, 0
	for _, item := range r.Items {
		switch item.Status {
		case StatusDone:
			r.Succeeded++
		case StatusError:
			r.Failed++
		case StatusCancelled:
			r.Cancelled++
		}
	}
}
