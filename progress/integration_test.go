//go:build integration

package progress_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/engine"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/job"
	"github.com/xraph/jobcore/progress"
	"github.com/xraph/jobcore/query"
	"github.com/xraph/jobcore/store/memory"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return rdb
}

func TestPublisherThroughEngine(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	sub := progress.Subscribe(ctx, rdb, "")
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	s := memory.New()
	eng, err := engine.New(s, engine.WithExtension(progress.New(rdb, progress.WithTTL(time.Minute))))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	if _, err := eng.Dispatch(ctx, &command.CreateJob{
		JobType:       job.TypeAuctionExport,
		CorrelationID: "export-redis",
		TotalItems:    4,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Dispatch(ctx, &command.ReportJobBatchProgress{
		CorrelationID:  "export-redis",
		CompletedCount: 3,
		FailedCount:    1,
	}); err != nil {
		t.Fatalf("progress: %v", err)
	}

	j, _ := s.GetJobByCorrelationID(ctx, "export-redis")
	snap, err := progress.Get(ctx, rdb, j.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Status != job.StatusCompletedWithErrors || snap.Percentage != 100 || !snap.Terminal {
		t.Errorf("snapshot = %+v", snap)
	}

	ttl, _ := rdb.PTTL(ctx, progress.Key(j.ID)).Result()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %s", ttl)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	var first query.Progress
	if err := json.Unmarshal([]byte(msg.Payload), &first); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if first.JobID != j.ID {
		t.Errorf("message job = %s, want %s", first.JobID, j.ID)
	}
}

func TestPublishSkipsOlderSnapshot(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	p := progress.New(rdb)

	j := job.New(job.Params{Type: job.TypeAuctionExport, CorrelationID: "ordered", Mode: job.ModeBulk})
	_ = j.IncrementTotalItems(2)
	_ = j.Start()
	newer := *j
	newer.CompletedItems = 1
	newer.UpdatedAt = j.UpdatedAt.Add(time.Microsecond)

	if ok, err := p.Publish(ctx, &newer); err != nil || !ok {
		t.Fatalf("publish newer = %v, %v", ok, err)
	}
	if ok, err := p.Publish(ctx, j); err != nil || ok {
		t.Fatalf("publish older = %v, %v; want skipped", ok, err)
	}

	snap, err := progress.Get(ctx, rdb, j.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Completed != 1 {
		t.Errorf("completed = %d, want 1", snap.Completed)
	}
}

func TestGetMissing(t *testing.T) {
	rdb := setupRedis(t)
	_, err := progress.Get(context.Background(), rdb, id.NewJobID())
	if !errors.Is(err, jobcore.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}
