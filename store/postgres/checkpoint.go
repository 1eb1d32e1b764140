package postgres

import (
	"context"
	"fmt"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/checkpoint"
	"github.com/xraph/jobcore/id"
)

// GetCheckpoint returns the committed checkpoint for correlationID.
func (s *Store) GetCheckpoint(ctx context.Context, correlationID string) (*checkpoint.Checkpoint, error) {
	return getCheckpoint(ctx, s.pool, correlationID)
}

func getCheckpoint(ctx context.Context, q querier, correlationID string) (*checkpoint.Checkpoint, error) {
	var (
		cp       checkpoint.Checkpoint
		jobIDStr string
	)
	err := q.QueryRow(ctx, `
		SELECT correlation_id, job_id, "offset", batch_count, updated_at
		FROM jobcore_checkpoints
		WHERE correlation_id = $1`,
		correlationID,
	).Scan(&cp.CorrelationID, &jobIDStr, &cp.Offset, &cp.BatchCount, &cp.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, jobcore.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("jobcore/postgres: get checkpoint: %w", err)
	}

	if cp.JobID, err = id.ParseJobID(jobIDStr); err != nil {
		return nil, fmt.Errorf("jobcore/postgres: parse job id %q: %w", jobIDStr, err)
	}
	return &cp, nil
}

func saveCheckpoint(ctx context.Context, q querier, cp *checkpoint.Checkpoint) error {
	_, err := q.Exec(ctx, `
		INSERT INTO jobcore_checkpoints (correlation_id, job_id, "offset", batch_count, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (correlation_id) DO UPDATE SET
			job_id = EXCLUDED.job_id,
			"offset" = EXCLUDED."offset",
			batch_count = EXCLUDED.batch_count,
			updated_at = EXCLUDED.updated_at`,
		cp.CorrelationID, cp.JobID.String(), cp.Offset, cp.BatchCount, cp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("jobcore/postgres: save checkpoint: %w", err)
	}
	return nil
}

func deleteCheckpoint(ctx context.Context, q querier, correlationID string) error {
	_, err := q.Exec(ctx, `DELETE FROM jobcore_checkpoints WHERE correlation_id = $1`, correlationID)
	if err != nil {
		return fmt.Errorf("jobcore/postgres: delete checkpoint: %w", err)
	}
	return nil
}
