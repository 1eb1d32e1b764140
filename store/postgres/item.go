package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
)

const itemColumns = `
	id, job_id, payload, sequence_number, status, retry_count, max_retry_count,
	error_message, completed_at, created_at, updated_at`

// ListItems returns a job's items ordered by sequence number.
func (s *Store) ListItems(ctx context.Context, jobID id.JobID, opts item.ListOpts) ([]*item.Item, error) {
	limit, offset := limitOffset(opts.Limit, opts.Offset)
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM jobcore_items
		WHERE job_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY sequence_number ASC, id ASC
		LIMIT $3 OFFSET $4`,
		jobID.String(), string(opts.Status), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("jobcore/postgres: list items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

func getItemsForUpdate(ctx context.Context, q querier, jobID id.JobID, itemIDs []id.ItemID) ([]*item.Item, error) {
	ids := make([]string, len(itemIDs))
	for i, itemID := range itemIDs {
		ids[i] = itemID.String()
	}

	rows, err := q.Query(ctx, `
		SELECT `+itemColumns+`
		FROM jobcore_items
		WHERE job_id = $1 AND id = ANY($2)
		ORDER BY id
		FOR UPDATE`,
		jobID.String(), ids,
	)
	if err != nil {
		return nil, fmt.Errorf("jobcore/postgres: get items for update: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// bulkCreateItems inserts items with the COPY protocol.
func bulkCreateItems(ctx context.Context, tx pgx.Tx, items []*item.Item) error {
	if len(items) == 0 {
		return nil
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"jobcore_items"},
		[]string{
			"id", "job_id", "payload", "sequence_number", "status", "retry_count",
			"max_retry_count", "error_message", "completed_at", "created_at", "updated_at",
		},
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			it := items[i]
			return []any{
				it.ID.String(), it.JobID.String(), it.Payload, it.SequenceNumber,
				string(it.Status), it.RetryCount, it.MaxRetryCount, it.ErrorMessage,
				it.CompletedAt, it.CreatedAt, it.UpdatedAt,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("jobcore/postgres: bulk create items: %w", err)
	}
	return nil
}

func updateItem(ctx context.Context, q querier, it *item.Item) error {
	tag, err := q.Exec(ctx, `
		UPDATE jobcore_items SET
			status = $2, retry_count = $3, error_message = $4,
			completed_at = $5, updated_at = $6
		WHERE id = $1`,
		it.ID.String(), string(it.Status), it.RetryCount, it.ErrorMessage,
		it.CompletedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("jobcore/postgres: update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return jobcore.ErrItemNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (*item.Item, error) {
	var (
		it        item.Item
		idStr     string
		jobIDStr  string
		statusStr string
	)
	err := row.Scan(
		&idStr, &jobIDStr, &it.Payload, &it.SequenceNumber, &statusStr,
		&it.RetryCount, &it.MaxRetryCount, &it.ErrorMessage,
		&it.CompletedAt, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.Status = item.Status(statusStr)

	if it.ID, err = id.ParseItemID(idStr); err != nil {
		return nil, fmt.Errorf("jobcore/postgres: parse item id %q: %w", idStr, err)
	}
	if it.JobID, err = id.ParseJobID(jobIDStr); err != nil {
		return nil, fmt.Errorf("jobcore/postgres: parse job id %q: %w", jobIDStr, err)
	}
	return &it, nil
}

func collectItems(rows pgx.Rows) ([]*item.Item, error) {
	var items []*item.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("jobcore/postgres: scan item row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("jobcore/postgres: iterate item rows: %w", err)
	}
	return items, nil
}
