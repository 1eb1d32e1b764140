//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/checkpoint"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
	"github.com/xraph/jobcore/store"
	"github.com/xraph/jobcore/store/postgres"
)

// setupTestStore creates a Postgres container and returns a migrated Store.
func setupTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("jobcore_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	s, err := postgres.New(ctx, connStr, postgres.WithLogger(slog.Default()))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if migErr := s.Migrate(ctx); migErr != nil {
		t.Fatalf("migrate: %v", migErr)
	}
	// Second run must be a no-op.
	if migErr := s.Migrate(ctx); migErr != nil {
		t.Fatalf("re-migrate: %v", migErr)
	}

	return s
}

func newEagerJob(t *testing.T, correlationID string, n int) (*job.Job, []*item.Item) {
	t.Helper()
	j := job.New(job.Params{
		Type:          job.TypeAuctionImport,
		CorrelationID: correlationID,
		RequestedBy:   "alice",
		Payload:       []byte(`{"source":"s3://bucket/lots.ndjson"}`),
		Mode:          job.ModeEager,
		MaxRetryCount: 2,
	})
	drafts := make([]item.Draft, n)
	for i := range drafts {
		drafts[i] = item.Draft{Payload: []byte(`{"lot":1}`), SequenceNumber: i}
	}
	items, err := j.AddItems(drafts...)
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	return j, items
}

func createJob(t *testing.T, s store.Store, j *job.Job, items []*item.Item) error {
	t.Helper()
	return s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateJob(ctx, j); err != nil {
			return err
		}
		return tx.BulkCreateItems(ctx, items)
	})
}

func TestPostgres_CreateAndRead(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	j, items := newEagerJob(t, "pg-create", 3)
	if err := createJob(t, s, j, items); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.TotalItems != 3 || got.Mode != job.ModeEager || got.Status != job.StatusPending {
		t.Errorf("got %+v", got)
	}
	if string(got.Payload) == "" {
		t.Error("payload lost")
	}

	byCorr, err := s.GetJobByCorrelationID(ctx, "pg-create")
	if err != nil || byCorr.ID.String() != j.ID.String() {
		t.Fatalf("GetJobByCorrelationID: %v %v", byCorr, err)
	}

	listed, err := s.ListItems(ctx, j.ID, item.ListOpts{})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(listed) != 3 || listed[0].SequenceNumber != 0 {
		t.Errorf("ListItems = %d items", len(listed))
	}

	jobs, err := s.ListJobsByRequester(ctx, "alice", job.ListOpts{Limit: 10})
	if err != nil || len(jobs) != 1 {
		t.Errorf("ListJobsByRequester = %d, %v", len(jobs), err)
	}

	if _, err := s.GetJob(ctx, id.NewJobID()); !errors.Is(err, jobcore.ErrJobNotFound) {
		t.Errorf("missing job: err = %v, want ErrJobNotFound", err)
	}
}

func TestPostgres_DuplicateCorrelation(t *testing.T) {
	s := setupTestStore(t)

	j1, items1 := newEagerJob(t, "pg-dup", 1)
	if err := createJob(t, s, j1, items1); err != nil {
		t.Fatalf("first create: %v", err)
	}

	j2, items2 := newEagerJob(t, "pg-dup", 1)
	if err := createJob(t, s, j2, items2); !errors.Is(err, jobcore.ErrDuplicateCorrelation) {
		t.Errorf("second create: err = %v, want ErrDuplicateCorrelation", err)
	}
}

func TestPostgres_RowLockSerializesIncrements(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	j := job.New(job.Params{Type: job.TypeAuctionExport, CorrelationID: "pg-lock", Mode: job.ModeBulk})
	_ = j.IncrementTotalItems(20)
	if err := createJob(t, s, j, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
				locked, err := tx.GetJobForUpdate(ctx, j.ID)
				if err != nil {
					return err
				}
				if _, err := locked.RecordItemCompleted(); err != nil {
					return err
				}
				return tx.UpdateJob(ctx, locked)
			})
			if err != nil {
				t.Errorf("InTx: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.GetJob(ctx, j.ID)
	if got.CompletedItems != 20 || got.Status != job.StatusCompleted {
		t.Errorf("got completed=%d status=%q, want 20 completed", got.CompletedItems, got.Status)
	}
}

func TestPostgres_ItemsForUpdateAndCheckpoint(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	j, items := newEagerJob(t, "pg-items", 2)
	if err := createJob(t, s, j, items); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.GetItemsForUpdate(ctx, j.ID, []id.ItemID{items[1].ID, id.NewItemID()})
		if err != nil {
			return err
		}
		if len(locked) != 1 {
			t.Errorf("locked %d items, want 1", len(locked))
		}
		if _, err := locked[0].MarkFailed("boom"); err != nil {
			return err
		}
		if err := tx.UpdateItem(ctx, locked[0]); err != nil {
			return err
		}
		cp := &checkpoint.Checkpoint{CorrelationID: "pg-items", JobID: j.ID}
		cp.Advance(2, time.Now().UTC())
		return tx.SaveCheckpoint(ctx, cp)
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}

	pending, _ := s.ListItems(ctx, j.ID, item.ListOpts{Status: item.StatusPending})
	if len(pending) != 2 {
		t.Errorf("pending items = %d, want 2 (retrying item stays pending)", len(pending))
	}

	cp, err := s.GetCheckpoint(ctx, "pg-items")
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}
	if cp.Offset != 2 || cp.BatchCount != 1 {
		t.Errorf("checkpoint = %+v", cp)
	}

	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.DeleteCheckpoint(ctx, "pg-items")
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetCheckpoint(ctx, "pg-items"); !errors.Is(err, jobcore.ErrCheckpointNotFound) {
		t.Errorf("err = %v, want ErrCheckpointNotFound", err)
	}
}

func TestPostgres_ListStaleJobs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	j := job.New(job.Params{Type: job.TypeAuctionExport, CorrelationID: "pg-stale", Mode: job.ModeBulk})
	_ = j.IncrementTotalItems(1)
	_ = j.Start()
	j.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	if err := createJob(t, s, j, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale, err := s.ListStaleJobs(ctx, time.Minute)
	if err != nil {
		t.Fatalf("ListStaleJobs: %v", err)
	}
	if len(stale) != 1 || stale[0].ID.String() != j.ID.String() {
		t.Errorf("stale = %d jobs", len(stale))
	}
}
