package item

import (
	"encoding/json"
	"time"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/id"
)

// Status represents the lifecycle state of a job item.
type Status string

const (
	// StatusPending means the item is waiting for (re)processing.
	StatusPending Status = "pending"
	// StatusCompleted means the item was processed successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the item exhausted its retry budget.
	StatusFailed Status = "failed"
)

// Draft is the caller-supplied shape of an item before it is owned by a job.
type Draft struct {
	Payload        json.RawMessage `json:"payload,omitempty" msgpack:"payload,omitempty"`
	SequenceNumber int             `json:"sequence_number"   msgpack:"sequence_number"`
}

// Item is one unit of work belonging to a job.
type Item struct {
	jobcore.Entity

	ID             id.ItemID       `json:"id"`
	JobID          id.JobID        `json:"job_id"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	SequenceNumber int             `json:"sequence_number"`
	Status         Status          `json:"status"`
	RetryCount     int             `json:"retry_count"`
	MaxRetryCount  int             `json:"max_retry_count"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// New creates a pending item owned by jobID. The retry budget is inherited
// from the job.
func New(jobID id.JobID, d Draft, maxRetryCount int) *Item {
	return &Item{
		Entity:         jobcore.NewEntity(),
		ID:             id.NewItemID(),
		JobID:          jobID,
		Payload:        d.Payload,
		SequenceNumber: d.SequenceNumber,
		Status:         StatusPending,
		MaxRetryCount:  maxRetryCount,
	}
}

// IsTerminal reports whether the item can no longer change state.
func (i *Item) IsTerminal() bool {
	switch i.Status {
	case StatusCompleted:
		return true
	case StatusFailed:
		return i.RetryCount >= i.MaxRetryCount
	default:
		return false
	}
}

// MarkCompleted records a successful outcome.
func (i *Item) MarkCompleted() (Outcome, error) {
	return Apply(i, Complete{})
}

// MarkFailed records a failed attempt. The item returns to pending while
// retries remain and becomes terminally failed once they are exhausted.
func (i *Item) MarkFailed(msg string) (Outcome, error) {
	return Apply(i, Failure{Message: msg})
}
