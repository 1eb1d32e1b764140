package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/checkpoint"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
	"github.com/xraph/jobcore/store"
)

var _ store.Tx = (*tx)(nil)

// tx stages writes in private maps and publishes them on commit.
type tx struct {
	s    *Store
	held map[string]*sync.Mutex

	jobs    map[string]*job.Job
	created map[string]bool

	items    map[string]*item.Item
	newItems []string

	checkpoints map[string]*checkpoint.Checkpoint
	deleted     map[string]bool
}

func newTx(s *Store) *tx {
	return &tx{
		s:           s,
		held:        make(map[string]*sync.Mutex),
		jobs:        make(map[string]*job.Job),
		created:     make(map[string]bool),
		items:       make(map[string]*item.Item),
		checkpoints: make(map[string]*checkpoint.Checkpoint),
		deleted:     make(map[string]bool),
	}
}

func (t *tx) lock(jobID string) {
	if _, ok := t.held[jobID]; ok {
		return
	}
	t.held[jobID] = t.s.lockRow(jobID)
}

func (t *tx) release() {
	for _, l := range t.held {
		l.Unlock()
	}
	t.held = nil
}

func (t *tx) commit() error {
	m := t.s
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return jobcore.ErrStoreClosed
	}

	for jobID := range t.created {
		if _, taken := m.byCorrelation[t.jobs[jobID].CorrelationID]; taken {
			return jobcore.ErrDuplicateCorrelation
		}
	}

	for jobID, j := range t.jobs {
		m.jobs[jobID] = j
		if t.created[jobID] {
			m.byCorrelation[j.CorrelationID] = jobID
		}
	}
	for itemID, it := range t.items {
		m.items[itemID] = it
	}
	for _, itemID := range t.newItems {
		jobID := t.items[itemID].JobID.String()
		m.itemsByJob[jobID] = append(m.itemsByJob[jobID], itemID)
	}
	for key := range t.deleted {
		delete(m.checkpoints, key)
	}
	for key, cp := range t.checkpoints {
		m.checkpoints[key] = cp
	}
	return nil
}

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

func (t *tx) GetJobForUpdate(_ context.Context, jobID id.JobID) (*job.Job, error) {
	key := jobID.String()
	if j, ok := t.jobs[key]; ok {
		cp := *j
		return &cp, nil
	}

	if !t.committedJob(key) {
		return nil, jobcore.ErrJobNotFound
	}
	t.lock(key)

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	cp := *t.s.jobs[key]
	return &cp, nil
}

func (t *tx) GetJobByCorrelationIDForUpdate(ctx context.Context, correlationID string) (*job.Job, error) {
	if j := t.stagedByCorrelation(correlationID); j != nil {
		cp := *j
		return &cp, nil
	}

	t.s.mu.RLock()
	jobID, ok := t.s.byCorrelation[correlationID]
	t.s.mu.RUnlock()
	if !ok {
		return nil, jobcore.ErrJobNotFound
	}

	parsed, err := id.ParseJobID(jobID)
	if err != nil {
		return nil, err
	}
	return t.GetJobForUpdate(ctx, parsed)
}

func (t *tx) GetJobByCorrelationID(ctx context.Context, correlationID string) (*job.Job, error) {
	if j := t.stagedByCorrelation(correlationID); j != nil {
		cp := *j
		return &cp, nil
	}
	return t.s.GetJobByCorrelationID(ctx, correlationID)
}

func (t *tx) CreateJob(_ context.Context, j *job.Job) error {
	key := j.ID.String()
	if t.stagedByCorrelation(j.CorrelationID) != nil {
		return jobcore.ErrDuplicateCorrelation
	}

	t.s.mu.RLock()
	_, taken := t.s.byCorrelation[j.CorrelationID]
	_, exists := t.s.jobs[key]
	t.s.mu.RUnlock()

	if taken {
		return jobcore.ErrDuplicateCorrelation
	}
	if exists {
		return jobcore.ErrJobAlreadyExists
	}

	t.lock(key)
	cp := *j
	t.jobs[key] = &cp
	t.created[key] = true
	return nil
}

func (t *tx) UpdateJob(_ context.Context, j *job.Job) error {
	key := j.ID.String()
	if _, ok := t.jobs[key]; !ok && !t.committedJob(key) {
		return jobcore.ErrJobNotFound
	}

	t.lock(key)
	cp := *j
	t.jobs[key] = &cp
	return nil
}

func (t *tx) committedJob(key string) bool {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	_, ok := t.s.jobs[key]
	return ok
}

func (t *tx) stagedByCorrelation(correlationID string) *job.Job {
	for _, j := range t.jobs {
		if j.CorrelationID == correlationID {
			return j
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Item Store
// ──────────────────────────────────────────────────

func (t *tx) GetItemsForUpdate(_ context.Context, jobID id.JobID, itemIDs []id.ItemID) ([]*item.Item, error) {
	t.lock(jobID.String())

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	result := make([]*item.Item, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		it, ok := t.items[itemID.String()]
		if !ok {
			it, ok = t.s.items[itemID.String()]
		}
		if !ok || it.JobID.String() != jobID.String() {
			continue
		}
		cp := *it
		result = append(result, &cp)
	}
	return result, nil
}

func (t *tx) BulkCreateItems(_ context.Context, items []*item.Item) error {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	for _, it := range items {
		key := it.ID.String()
		if _, ok := t.s.items[key]; ok {
			return fmt.Errorf("jobcore/memory: item %s already exists", key)
		}
		if _, ok := t.items[key]; ok {
			return fmt.Errorf("jobcore/memory: item %s already exists", key)
		}
		cp := *it
		t.items[key] = &cp
		t.newItems = append(t.newItems, key)
	}
	return nil
}

func (t *tx) UpdateItem(_ context.Context, it *item.Item) error {
	key := it.ID.String()
	if _, ok := t.items[key]; !ok {
		t.s.mu.RLock()
		_, ok = t.s.items[key]
		t.s.mu.RUnlock()
		if !ok {
			return jobcore.ErrItemNotFound
		}
	}

	cp := *it
	t.items[key] = &cp
	return nil
}

// ──────────────────────────────────────────────────
// Checkpoint Store
// ──────────────────────────────────────────────────

func (t *tx) GetCheckpoint(ctx context.Context, correlationID string) (*checkpoint.Checkpoint, error) {
	if cp, ok := t.checkpoints[correlationID]; ok {
		c := *cp
		return &c, nil
	}
	if t.deleted[correlationID] {
		return nil, jobcore.ErrCheckpointNotFound
	}
	return t.s.GetCheckpoint(ctx, correlationID)
}

func (t *tx) SaveCheckpoint(_ context.Context, cp *checkpoint.Checkpoint) error {
	c := *cp
	t.checkpoints[cp.CorrelationID] = &c
	return nil
}

func (t *tx) DeleteCheckpoint(_ context.Context, correlationID string) error {
	delete(t.checkpoints, correlationID)
	t.deleted[correlationID] = true
	return nil
}
