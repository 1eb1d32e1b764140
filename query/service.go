package query

import (
	"context"
	"time"

	"github.com/xraph/jobcore/checkpoint"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
)

const (
	// DefaultLimit applies to list calls that set no limit.
	DefaultLimit = 50
	// MaxLimit caps the page size of list calls.
	MaxLimit = 500
)

// Reader is the read-only store surface the service needs.
type Reader interface {
	job.Reader
	item.Reader
	checkpoint.Reader
}

// Progress is a point-in-time snapshot of a job's counters.
type Progress struct {
	JobID       id.JobID   `json:"job_id"`
	Status      job.Status `json:"status"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	Failed      int        `json:"failed"`
	Percentage  float64    `json:"percentage"`
	Terminal    bool       `json:"terminal"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProgressOf builds a snapshot from a job.
func ProgressOf(j *job.Job) Progress {
	return Progress{
		JobID:       j.ID,
		Status:      j.Status,
		Total:       j.TotalItems,
		Completed:   j.CompletedItems,
		Failed:      j.FailedItems,
		Percentage:  j.ProgressPercentage(),
		Terminal:    j.IsTerminal(),
		UpdatedAt:   j.UpdatedAt,
		CompletedAt: j.CompletedAt,
	}
}

// Service provides read operations over a Reader.
type Service struct {
	store Reader
}

// NewService creates a query service.
func NewService(store Reader) *Service {
	return &Service{store: store}
}

// Get returns a job by id.
func (s *Service) Get(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// GetByCorrelationID returns the job created for a correlation id.
func (s *Service) GetByCorrelationID(ctx context.Context, correlationID string) (*job.Job, error) {
	return s.store.GetJobByCorrelationID(ctx, correlationID)
}

// ListByRequester returns the requester's jobs, newest first.
func (s *Service) ListByRequester(ctx context.Context, requestedBy string, opts job.ListOpts) ([]*job.Job, error) {
	opts.Limit = clampLimit(opts.Limit)
	return s.store.ListJobsByRequester(ctx, requestedBy, opts)
}

// Items returns a job's items in sequence order.
func (s *Service) Items(ctx context.Context, jobID id.JobID, opts item.ListOpts) ([]*item.Item, error) {
	opts.Limit = clampLimit(opts.Limit)
	return s.store.ListItems(ctx, jobID, opts)
}

// Progress returns a progress snapshot of a job.
func (s *Service) Progress(ctx context.Context, jobID id.JobID) (Progress, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return Progress{}, err
	}
	return ProgressOf(j), nil
}

// Checkpoint returns the resume point of a streaming import.
func (s *Service) Checkpoint(ctx context.Context, correlationID string) (*checkpoint.Checkpoint, error) {
	return s.store.GetCheckpoint(ctx, correlationID)
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}
