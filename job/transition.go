package job

import (
	"fmt"
	"time"

	"github.com/xraph/jobcore"
)

// Event is a mutation applied to a job through [Apply].
type Event interface {
	jobEvent()
}

// IncrementTotal grows TotalItems by N.
type IncrementTotal struct{ N int }

// Start moves a pending job to processing.
type Start struct{}

// Progress records item outcomes. Increments are clamped to the remaining
// capacity so outcomes never exceed the total.
type Progress struct {
	Completed int
	Failed    int
}

// Finalize locks the total of an initializing job.
type Finalize struct{}

// Fail forces the job to failed with a reason.
type Fail struct{ Reason string }

// Cancel marks the job as cancelled.
type Cancel struct{}

func (IncrementTotal) jobEvent() {}
func (Start) jobEvent()          {}
func (Progress) jobEvent()       {}
func (Finalize) jobEvent()       {}
func (Fail) jobEvent()           {}
func (Cancel) jobEvent()         {}

// Effects describes what an applied event changed.
type Effects struct {
	From Status
	To   Status

	// Started is set when the job entered processing during this event.
	Started bool

	// Completed and Failed are the counter increments actually applied.
	Completed int
	Failed    int

	// Overflow counts reported outcomes dropped because the job had no
	// remaining capacity.
	Overflow int
}

// Finished reports whether the event moved the job into a terminal status.
func (e Effects) Finished() bool {
	return !e.From.IsTerminal() && e.To.IsTerminal()
}

// Applied returns the number of outcomes applied to the counters.
func (e Effects) Applied() int { return e.Completed + e.Failed }

// Apply is the job state machine. Every mutation of a Job goes through it.
//
//	initializing --finalize--> pending
//	pending --start/first progress--> processing
//	processing --outcomes reach total--> completed | completed_with_errors
//	non-terminal --fail--> failed
//	non-terminal --cancel--> cancelled
//
// Illegal transitions return an error wrapping [jobcore.ErrInvalidTransition];
// events on terminal jobs additionally wrap [jobcore.ErrAlreadyTerminal].
func Apply(j *Job, ev Event) (Effects, error) {
	eff := Effects{From: j.Status, To: j.Status}

	if j.Status.IsTerminal() {
		return eff, fmt.Errorf("%w: %w: job %s is %s",
			jobcore.ErrInvalidTransition, jobcore.ErrAlreadyTerminal, j.ID, j.Status)
	}

	now := time.Now().UTC()

	switch e := ev.(type) {
	case IncrementTotal:
		if e.N < 0 {
			return eff, invalid(j, "increment total by %d", e.N)
		}
		if !j.AcceptsGrowth() {
			return eff, invalid(j, "increment total")
		}
		j.TotalItems += e.N

	case Start:
		switch j.Status {
		case StatusProcessing:
			return eff, nil
		case StatusPending:
			j.start(now, &eff)
		default:
			return eff, invalid(j, "start")
		}

	case Progress:
		if e.Completed < 0 || e.Failed < 0 {
			return eff, invalid(j, "record progress %d/%d", e.Completed, e.Failed)
		}
		j.record(e.Completed, e.Failed, &eff)
		if j.Status == StatusInitializing || eff.Applied() == 0 {
			break
		}
		if j.Status == StatusPending {
			j.start(now, &eff)
		}
		j.completeIfDone(now)

	case Finalize:
		if j.Status != StatusInitializing {
			return eff, invalid(j, "finalize")
		}
		j.Status = StatusPending
		switch {
		case j.TotalItems == 0:
			j.Status = StatusCompleted
			j.CompletedAt = &now
		case j.Outcomes() == j.TotalItems:
			j.start(now, &eff)
			j.completeIfDone(now)
		}

	case Fail:
		j.Status = StatusFailed
		j.ErrorMessage = e.Reason
		j.CompletedAt = &now

	case Cancel:
		j.Status = StatusCancelled
		j.CompletedAt = &now

	default:
		return eff, fmt.Errorf("%w: unknown job event %T", jobcore.ErrInvalidTransition, ev)
	}

	j.Touch(now)
	eff.To = j.Status
	return eff, nil
}

func (j *Job) start(now time.Time, eff *Effects) {
	j.Status = StatusProcessing
	if j.StartedAt == nil {
		j.StartedAt = &now
	}
	eff.Started = true
}

func (j *Job) record(completed, failed int, eff *Effects) {
	remaining := j.TotalItems - j.Outcomes()

	c := min(completed, remaining)
	remaining -= c
	f := min(failed, remaining)

	j.CompletedItems += c
	j.FailedItems += f

	eff.Completed = c
	eff.Failed = f
	eff.Overflow = completed + failed - c - f
}

func (j *Job) completeIfDone(now time.Time) {
	if j.Status != StatusProcessing || j.TotalItems == 0 || j.Outcomes() < j.TotalItems {
		return
	}
	if j.FailedItems == 0 {
		j.Status = StatusCompleted
	} else {
		j.Status = StatusCompletedWithErrors
	}
	j.CompletedAt = &now
}

func invalid(j *Job, format string, args ...any) error {
	return fmt.Errorf("%w: %s in status %s", jobcore.ErrInvalidTransition, fmt.Sprintf(format, args...), j.Status)
}
