package item

import (
	"fmt"
	"time"

	"github.com/xraph/jobcore"
)

// Event is a mutation applied to an item through [Apply].
type Event interface {
	itemEvent()
}

// Complete marks the item as successfully processed.
type Complete struct{}

// Failure records one failed processing attempt.
type Failure struct {
	Message string
}

func (Complete) itemEvent() {}
func (Failure) itemEvent()  {}

// Outcome describes how an applied event affects the owning job.
type Outcome int

const (
	// OutcomeNone means nothing changed.
	OutcomeNone Outcome = iota
	// OutcomeCompleted means the item finished successfully and counts as completed.
	OutcomeCompleted
	// OutcomeRetrying means the item failed but will be reprocessed. It is not counted.
	OutcomeRetrying
	// OutcomeExhausted means the item failed terminally and counts as failed.
	OutcomeExhausted
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeRetrying:
		return "retrying"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "none"
	}
}

// Counted reports whether the outcome moves the owning job's counters.
func (o Outcome) Counted() bool {
	return o == OutcomeCompleted || o == OutcomeExhausted
}

// Apply is the item state machine. Terminal items reject every event with
// an error wrapping [jobcore.ErrAlreadyTerminal].
func Apply(i *Item, ev Event) (Outcome, error) {
	if i.IsTerminal() {
		return OutcomeNone, fmt.Errorf("%w: item %s is %s", jobcore.ErrAlreadyTerminal, i.ID, i.Status)
	}

	now := time.Now().UTC()

	switch e := ev.(type) {
	case Complete:
		i.Status = StatusCompleted
		i.ErrorMessage = ""
		i.CompletedAt = &now
		i.Touch(now)
		return OutcomeCompleted, nil

	case Failure:
		i.RetryCount++
		i.ErrorMessage = e.Message
		i.Touch(now)
		if i.RetryCount < i.MaxRetryCount {
			i.Status = StatusPending
			return OutcomeRetrying, nil
		}
		i.Status = StatusFailed
		i.CompletedAt = &now
		return OutcomeExhausted, nil

	default:
		return OutcomeNone, fmt.Errorf("%w: unknown item event %T", jobcore.ErrInvalidTransition, ev)
	}
}
