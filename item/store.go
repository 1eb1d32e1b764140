package item

import (
	"context"

	"github.com/xraph/jobcore/id"
)

// Store defines the transactional persistence contract for items. It is
// only reachable through a unit of work, where GetItemsForUpdate holds
// row locks until commit.
type Store interface {
	// GetItemsForUpdate loads the requested items of one job and locks them
	// for the rest of the transaction. Missing ids are omitted from the
	// result rather than reported as an error.
	GetItemsForUpdate(ctx context.Context, jobID id.JobID, itemIDs []id.ItemID) ([]*Item, error)

	// BulkCreateItems inserts new items in a single round trip.
	BulkCreateItems(ctx context.Context, items []*Item) error

	// UpdateItem persists changes to an existing item.
	UpdateItem(ctx context.Context, it *Item) error
}

// ListOpts controls pagination for item list queries.
type ListOpts struct {
	// Limit is the maximum number of items to return. Zero means no limit.
	Limit int
	// Offset is the number of items to skip.
	Offset int
	// Status filters by item status. Empty means all statuses.
	Status Status
}

// Reader is the read-side contract for items.
type Reader interface {
	// ListItems returns a job's items ordered by sequence number.
	ListItems(ctx context.Context, jobID id.JobID, opts ListOpts) ([]*Item, error)
}
