// Package checkpoint defines the resumable-import cursor and its store
// interface.
//
// A [Checkpoint] records the last source offset whose batch was durably
// committed for a streaming import, keyed by the job's correlation id. It
// is written in the same unit of work as the batch it describes and is
// deleted once the job is finalized, failed, or cancelled.
package checkpoint

import (
	"context"
	"time"

	"github.com/xraph/jobcore/id"
)

// Checkpoint is the durable cursor of a streaming import.
type Checkpoint struct {
	CorrelationID string    `json:"correlation_id"`
	JobID         id.JobID  `json:"job_id"`
	Offset        int64     `json:"offset"`
	BatchCount    int       `json:"batch_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Covers reports whether a batch ending at offset was already committed.
func (c *Checkpoint) Covers(offset int64) bool {
	return c != nil && offset <= c.Offset
}

// Advance moves the cursor to offset and counts one more committed batch.
func (c *Checkpoint) Advance(offset int64, now time.Time) {
	c.Offset = offset
	c.BatchCount++
	c.UpdatedAt = now
}

// Reader is the read-side contract for checkpoints.
type Reader interface {
	// GetCheckpoint returns the checkpoint for correlationID.
	// Returns jobcore.ErrCheckpointNotFound if none exists.
	GetCheckpoint(ctx context.Context, correlationID string) (*Checkpoint, error)
}

// Store defines the transactional persistence contract for checkpoints.
type Store interface {
	Reader

	// SaveCheckpoint creates or replaces the checkpoint.
	SaveCheckpoint(ctx context.Context, cp *Checkpoint) error

	// DeleteCheckpoint removes the checkpoint. Deleting a missing
	// checkpoint is not an error.
	DeleteCheckpoint(ctx context.Context, correlationID string) error
}
