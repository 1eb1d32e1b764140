// Package memory provides a fully in-memory implementation of store.Store.
// Transactions hold a per-job row lock and stage their writes until commit,
// so concurrent handlers on the same job serialize while unrelated jobs
// proceed in parallel. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/checkpoint"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
	"github.com/xraph/jobcore/store"
)

// Ensure Store implements store.Store at compile time.
var _ store.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access.
type Store struct {
	mu sync.RWMutex

	jobs          map[string]*job.Job
	byCorrelation map[string]string // correlation id → job id
	items         map[string]*item.Item
	itemsByJob    map[string][]string
	checkpoints   map[string]*checkpoint.Checkpoint

	locksMu sync.Mutex
	rowLock map[string]*sync.Mutex // job id → row lock

	closed bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:          make(map[string]*job.Job),
		byCorrelation: make(map[string]string),
		items:         make(map[string]*item.Item),
		itemsByJob:    make(map[string][]string),
		checkpoints:   make(map[string]*checkpoint.Checkpoint),
		rowLock:       make(map[string]*sync.Mutex),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle: Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping fails once the store is closed.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return jobcore.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Further transactions fail.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// Unit of work
// ──────────────────────────────────────────────────

// InTx runs fn against a staging transaction. Writes become visible only
// when fn returns nil; row locks taken by fn are released either way.
func (m *Store) InTx(ctx context.Context, fn store.TxFunc) error {
	if err := m.Ping(ctx); err != nil {
		return err
	}

	t := newTx(m)
	defer t.release()

	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

func (m *Store) lockRow(jobID string) *sync.Mutex {
	m.locksMu.Lock()
	l, ok := m.rowLock[jobID]
	if !ok {
		l = &sync.Mutex{}
		m.rowLock[jobID] = l
	}
	m.locksMu.Unlock()

	l.Lock()
	return l
}

// ──────────────────────────────────────────────────
// Job Reader
// ──────────────────────────────────────────────────

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, jobcore.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// GetJobByCorrelationID retrieves a job by its idempotency key.
func (m *Store) GetJobByCorrelationID(_ context.Context, correlationID string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobID, ok := m.byCorrelation[correlationID]
	if !ok {
		return nil, jobcore.ErrJobNotFound
	}
	cp := *m.jobs[jobID]
	return &cp, nil
}

// ListJobsByRequester returns jobs submitted by requestedBy, newest first.
func (m *Store) ListJobsByRequester(_ context.Context, requestedBy string, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*job.Job
	for _, j := range m.jobs {
		if j.RequestedBy != requestedBy {
			continue
		}
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		cp := *j
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		if result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].ID.String() > result[k].ID.String()
		}
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

// ListStaleJobs returns processing jobs not updated within threshold.
func (m *Store) ListStaleJobs(_ context.Context, threshold time.Duration) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-threshold)
	var result []*job.Job
	for _, j := range m.jobs {
		if j.Status == job.StatusProcessing && j.UpdatedAt.Before(cutoff) {
			cp := *j
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].UpdatedAt.Before(result[k].UpdatedAt)
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// Item Reader
// ──────────────────────────────────────────────────

// ListItems returns a job's items ordered by sequence number.
func (m *Store) ListItems(_ context.Context, jobID id.JobID, opts item.ListOpts) ([]*item.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.itemsByJob[jobID.String()]
	result := make([]*item.Item, 0, len(ids))
	for _, itemID := range ids {
		it := m.items[itemID]
		if opts.Status != "" && it.Status != opts.Status {
			continue
		}
		cp := *it
		result = append(result, &cp)
	}

	sort.SliceStable(result, func(i, k int) bool {
		return result[i].SequenceNumber < result[k].SequenceNumber
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Checkpoint Reader
// ──────────────────────────────────────────────────

// GetCheckpoint returns the committed checkpoint for correlationID.
func (m *Store) GetCheckpoint(_ context.Context, correlationID string) (*checkpoint.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.checkpoints[correlationID]
	if !ok {
		return nil, jobcore.ErrCheckpointNotFound
	}
	c := *cp
	return &c, nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
