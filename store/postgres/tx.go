package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/jobcore/checkpoint"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
	"github.com/xraph/jobcore/store"
)

var _ store.Tx = (*txStore)(nil)

// txStore binds the store contracts to one pgx transaction.
type txStore struct {
	tx pgx.Tx
}

func (t *txStore) GetJobForUpdate(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return getJob(ctx, t.tx, `WHERE id = $1 FOR UPDATE`, jobID.String())
}

func (t *txStore) GetJobByCorrelationIDForUpdate(ctx context.Context, correlationID string) (*job.Job, error) {
	return getJob(ctx, t.tx, `WHERE correlation_id = $1 FOR UPDATE`, correlationID)
}

func (t *txStore) GetJobByCorrelationID(ctx context.Context, correlationID string) (*job.Job, error) {
	return getJob(ctx, t.tx, `WHERE correlation_id = $1`, correlationID)
}

func (t *txStore) CreateJob(ctx context.Context, j *job.Job) error {
	return insertJob(ctx, t.tx, j)
}

func (t *txStore) UpdateJob(ctx context.Context, j *job.Job) error {
	return updateJob(ctx, t.tx, j)
}

func (t *txStore) GetItemsForUpdate(ctx context.Context, jobID id.JobID, itemIDs []id.ItemID) ([]*item.Item, error) {
	return getItemsForUpdate(ctx, t.tx, jobID, itemIDs)
}

func (t *txStore) BulkCreateItems(ctx context.Context, items []*item.Item) error {
	return bulkCreateItems(ctx, t.tx, items)
}

func (t *txStore) UpdateItem(ctx context.Context, it *item.Item) error {
	return updateItem(ctx, t.tx, it)
}

func (t *txStore) GetCheckpoint(ctx context.Context, correlationID string) (*checkpoint.Checkpoint, error) {
	return getCheckpoint(ctx, t.tx, correlationID)
}

func (t *txStore) SaveCheckpoint(ctx context.Context, cp *checkpoint.Checkpoint) error {
	return saveCheckpoint(ctx, t.tx, cp)
}

func (t *txStore) DeleteCheckpoint(ctx context.Context, correlationID string) error {
	return deleteCheckpoint(ctx, t.tx, correlationID)
}
