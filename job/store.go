package job

import (
	"context"
	"time"

	"github.com/xraph/jobcore/id"
)

// ListOpts controls pagination and filtering for job list queries.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
	// Status filters by job status. Empty means all statuses.
	Status Status
}

// Store defines the transactional persistence contract for jobs. It is
// only reachable through a unit of work, where GetJobForUpdate holds the
// job row lock until commit.
type Store interface {
	// GetJobForUpdate loads a job and locks its row for the rest of the
	// transaction. Returns jobcore.ErrJobNotFound if missing.
	GetJobForUpdate(ctx context.Context, jobID id.JobID) (*Job, error)

	// GetJobByCorrelationIDForUpdate is GetJobForUpdate keyed by the
	// caller's idempotency key.
	GetJobByCorrelationIDForUpdate(ctx context.Context, correlationID string) (*Job, error)

	// GetJobByCorrelationID reads a job by its idempotency key without
	// locking. Returns jobcore.ErrJobNotFound if missing.
	GetJobByCorrelationID(ctx context.Context, correlationID string) (*Job, error)

	// CreateJob persists a new job. Returns jobcore.ErrDuplicateCorrelation
	// when another job already holds the correlation id.
	CreateJob(ctx context.Context, j *Job) error

	// UpdateJob persists changes to an existing job.
	UpdateJob(ctx context.Context, j *Job) error
}

// Reader is the read-side contract for jobs.
type Reader interface {
	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// GetJobByCorrelationID retrieves a job by its idempotency key.
	GetJobByCorrelationID(ctx context.Context, correlationID string) (*Job, error)

	// ListJobsByRequester returns jobs submitted by requestedBy, newest first.
	ListJobsByRequester(ctx context.Context, requestedBy string, opts ListOpts) ([]*Job, error)

	// ListStaleJobs returns processing jobs not updated within threshold.
	ListStaleJobs(ctx context.Context, threshold time.Duration) ([]*Job, error)
}
