package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	// StatusInitializing means a streaming job is still receiving item batches.
	StatusInitializing Status = "initializing"
	// StatusPending means the job's size is fixed and no outcome has arrived yet.
	StatusPending Status = "pending"
	// StatusProcessing means outcomes are being recorded.
	StatusProcessing Status = "processing"
	// StatusCompleted means every item finished successfully.
	StatusCompleted Status = "completed"
	// StatusCompletedWithErrors means every item finished and some failed terminally.
	StatusCompletedWithErrors Status = "completed_with_errors"
	// StatusFailed means the job was explicitly failed.
	StatusFailed Status = "failed"
	// StatusCancelled means the job was explicitly cancelled.
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Mode is the creation mode of a job.
type Mode string

const (
	// ModeEager jobs carry addressable items fixed at creation.
	ModeEager Mode = "eager"
	// ModeBulk jobs are pre-sized and tracked by counts only.
	ModeBulk Mode = "bulk"
	// ModeStreaming jobs grow batch by batch until finalized.
	ModeStreaming Mode = "streaming"
)

// Priority orders jobs of the same type. Higher is more urgent.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Job is the parent unit of background work. It owns totals, counters,
// and status; all mutations go through [Apply].
type Job struct {
	jobcore.Entity

	ID             id.JobID        `json:"id"`
	CorrelationID  string          `json:"correlation_id"`
	Type           Type            `json:"type"`
	Priority       Priority        `json:"priority"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	RequestedBy    string          `json:"requested_by,omitempty"`
	Mode           Mode            `json:"mode"`
	Status         Status          `json:"status"`
	TotalItems     int             `json:"total_items"`
	CompletedItems int             `json:"completed_items"`
	FailedItems    int             `json:"failed_items"`
	MaxRetryCount  int             `json:"max_retry_count"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// Params describes a job to create.
type Params struct {
	Type          Type
	CorrelationID string
	Payload       json.RawMessage
	RequestedBy   string
	Priority      Priority
	MaxRetryCount int
	Mode          Mode
}

// New creates a job with zero items. Streaming jobs start in
// [StatusInitializing]; every other mode starts in [StatusPending].
func New(p Params) *Job {
	status := StatusPending
	if p.Mode == ModeStreaming {
		status = StatusInitializing
	}

	return &Job{
		Entity:        jobcore.NewEntity(),
		ID:            id.NewJobID(),
		CorrelationID: p.CorrelationID,
		Type:          p.Type,
		Priority:      p.Priority,
		Payload:       p.Payload,
		RequestedBy:   p.RequestedBy,
		Mode:          p.Mode,
		Status:        status,
		MaxRetryCount: p.MaxRetryCount,
	}
}

// IsTerminal reports whether the job is in a terminal status.
func (j *Job) IsTerminal() bool { return j.Status.IsTerminal() }

// Outcomes returns the number of recorded outcomes.
func (j *Job) Outcomes() int { return j.CompletedItems + j.FailedItems }

// ProgressPercentage returns recorded outcomes as a percentage of the
// total. It is 0 when the job has no items, and while the job is
// initializing because the total may still grow.
func (j *Job) ProgressPercentage() float64 {
	if j.TotalItems == 0 || j.Status == StatusInitializing {
		return 0
	}
	return float64(j.Outcomes()) / float64(j.TotalItems) * 100
}

// AcceptsGrowth reports whether TotalItems may still increase.
func (j *Job) AcceptsGrowth() bool {
	switch j.Status {
	case StatusInitializing:
		return true
	case StatusPending:
		return j.Mode != ModeStreaming
	default:
		return false
	}
}

// AcceptsItemBatches reports whether item rows may still be added after
// creation. Only streaming jobs grow batch by batch, and only until they
// are finalized.
func (j *Job) AcceptsItemBatches() bool {
	return j.Mode == ModeStreaming && j.Status == StatusInitializing
}

// HasAddressableItems reports whether outcomes are tracked per item row.
func (j *Job) HasAddressableItems() bool { return j.Mode != ModeBulk }

// IncrementTotalItems grows the job by n items.
func (j *Job) IncrementTotalItems(n int) error {
	_, err := Apply(j, IncrementTotal{N: n})
	return err
}

// AddItem constructs an item owned by this job and counts it in the total.
func (j *Job) AddItem(payload json.RawMessage, seq int) (*item.Item, error) {
	items, err := j.AddItems(item.Draft{Payload: payload, SequenceNumber: seq})
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

// AddItems constructs items owned by this job and counts them in the total
// with a single increment. Bulk jobs track counts only and reject items.
func (j *Job) AddItems(drafts ...item.Draft) ([]*item.Item, error) {
	if j.Mode == ModeBulk {
		return nil, invalid(j, "add items to %s job", ModeBulk)
	}
	if _, err := Apply(j, IncrementTotal{N: len(drafts)}); err != nil {
		return nil, err
	}

	items := make([]*item.Item, len(drafts))
	for i, d := range drafts {
		items[i] = item.New(j.ID, d, j.MaxRetryCount)
	}
	return items, nil
}

// Start moves a pending job to processing. It is a no-op when the job is
// already processing.
func (j *Job) Start() error {
	_, err := Apply(j, Start{})
	return err
}

// RecordItemCompleted records one successful item outcome.
func (j *Job) RecordItemCompleted() (Effects, error) {
	return Apply(j, Progress{Completed: 1})
}

// RecordItemFailed records one terminal item failure.
func (j *Job) RecordItemFailed() (Effects, error) {
	return Apply(j, Progress{Failed: 1})
}

// RecordBatch records many outcomes in one counter update.
func (j *Job) RecordBatch(completed, failed int) (Effects, error) {
	return Apply(j, Progress{Completed: completed, Failed: failed})
}

// RecordBatchCompleted records n successful outcomes.
func (j *Job) RecordBatchCompleted(n int) (Effects, error) {
	return j.RecordBatch(n, 0)
}

// RecordBatchFailed records n terminal failures.
func (j *Job) RecordBatchFailed(n int) (Effects, error) {
	return j.RecordBatch(0, n)
}

// FinalizeInitialization locks the total of a streaming job.
func (j *Job) FinalizeInitialization() (Effects, error) {
	return Apply(j, Finalize{})
}

// Fail forces a non-terminal job to failed.
func (j *Job) Fail(reason string) error {
	_, err := Apply(j, Fail{Reason: reason})
	return err
}

// Cancel marks a non-terminal job as cancelled. In-flight item work is not
// interrupted; later reports become no-ops.
func (j *Job) Cancel() error {
	_, err := Apply(j, Cancel{})
	return err
}
