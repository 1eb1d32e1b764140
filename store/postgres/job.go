package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/job"
)

const jobColumns = `
	id, correlation_id, type, priority, payload, requested_by, mode, status,
	total_items, completed_items, failed_items, max_retry_count, error_message,
	started_at, completed_at, created_at, updated_at`

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return getJob(ctx, s.pool, `WHERE id = $1`, jobID.String())
}

// GetJobByCorrelationID retrieves a job by its idempotency key.
func (s *Store) GetJobByCorrelationID(ctx context.Context, correlationID string) (*job.Job, error) {
	return getJob(ctx, s.pool, `WHERE correlation_id = $1`, correlationID)
}

// ListJobsByRequester returns jobs submitted by requestedBy, newest first.
func (s *Store) ListJobsByRequester(ctx context.Context, requestedBy string, opts job.ListOpts) ([]*job.Job, error) {
	limit, offset := limitOffset(opts.Limit, opts.Offset)
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobcore_jobs
		WHERE requested_by = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		requestedBy, string(opts.Status), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("jobcore/postgres: list jobs by requester: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListStaleJobs returns processing jobs not updated within threshold.
func (s *Store) ListStaleJobs(ctx context.Context, threshold time.Duration) ([]*job.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobcore_jobs
		WHERE status = 'processing' AND updated_at < $1
		ORDER BY updated_at ASC`,
		time.Now().UTC().Add(-threshold),
	)
	if err != nil {
		return nil, fmt.Errorf("jobcore/postgres: list stale jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

func getJob(ctx context.Context, q querier, where string, arg any) (*job.Job, error) {
	row := q.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobcore_jobs `+where, arg)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, jobcore.ErrJobNotFound
		}
		return nil, fmt.Errorf("jobcore/postgres: get job: %w", err)
	}
	return j, nil
}

func insertJob(ctx context.Context, q querier, j *job.Job) error {
	_, err := q.Exec(ctx, `
		INSERT INTO jobcore_jobs (`+jobColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17
		)`,
		j.ID.String(), j.CorrelationID, string(j.Type), int(j.Priority), j.Payload,
		j.RequestedBy, string(j.Mode), string(j.Status),
		j.TotalItems, j.CompletedItems, j.FailedItems, j.MaxRetryCount, j.ErrorMessage,
		j.StartedAt, j.CompletedAt, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return jobcore.ErrDuplicateCorrelation
		}
		return fmt.Errorf("jobcore/postgres: create job: %w", err)
	}
	return nil
}

func updateJob(ctx context.Context, q querier, j *job.Job) error {
	tag, err := q.Exec(ctx, `
		UPDATE jobcore_jobs SET
			priority = $2, payload = $3, status = $4,
			total_items = $5, completed_items = $6, failed_items = $7,
			max_retry_count = $8, error_message = $9,
			started_at = $10, completed_at = $11, updated_at = $12
		WHERE id = $1`,
		j.ID.String(), int(j.Priority), j.Payload, string(j.Status),
		j.TotalItems, j.CompletedItems, j.FailedItems,
		j.MaxRetryCount, j.ErrorMessage,
		j.StartedAt, j.CompletedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("jobcore/postgres: update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return jobcore.ErrJobNotFound
	}
	return nil
}

// scanJob scans a single job row.
func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j         job.Job
		idStr     string
		typeStr   string
		priority  int16
		modeStr   string
		statusStr string
	)
	err := row.Scan(
		&idStr, &j.CorrelationID, &typeStr, &priority, &j.Payload, &j.RequestedBy,
		&modeStr, &statusStr,
		&j.TotalItems, &j.CompletedItems, &j.FailedItems, &j.MaxRetryCount, &j.ErrorMessage,
		&j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.Type = job.Type(typeStr)
	j.Priority = job.Priority(priority)
	j.Mode = job.Mode(modeStr)
	j.Status = job.Status(statusStr)

	parsedID, parseErr := id.ParseJobID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("jobcore/postgres: parse job id %q: %w", idStr, parseErr)
	}
	j.ID = parsedID

	return &j, nil
}

// collectJobs collects all jobs from query rows.
func collectJobs(rows pgx.Rows) ([]*job.Job, error) {
	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("jobcore/postgres: scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("jobcore/postgres: iterate job rows: %w", err)
	}
	return jobs, nil
}
