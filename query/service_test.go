package query_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/handler"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
	"github.com/xraph/jobcore/query"
	"github.com/xraph/jobcore/store/memory"
)

func setup(t *testing.T) (*query.Service, *handler.Dispatcher) {
	t.Helper()
	s := memory.New()
	return query.NewService(s), handler.New(s)
}

func mustHandle(t *testing.T, d *handler.Dispatcher, cmd command.Command) {
	t.Helper()
	if res, err := d.Handle(context.Background(), cmd); err != nil || !res.Applied() {
		t.Fatalf("%s: got (%s, %v)", cmd.Kind(), res, err)
	}
}

func TestService_Progress(t *testing.T) {
	t.Parallel()
	svc, d := setup(t)
	ctx := context.Background()

	mustHandle(t, d, &command.CreateJob{JobType: job.TypeSearchReindex, CorrelationID: "reindex-1", TotalItems: 8})
	mustHandle(t, d, &command.ReportJobBatchProgress{CorrelationID: "reindex-1", CompletedCount: 3, FailedCount: 1})

	j, err := svc.GetByCorrelationID(ctx, "reindex-1")
	if err != nil {
		t.Fatal(err)
	}
	p, err := svc.Progress(ctx, j.ID)
	if err != nil {
		t.Fatal(err)
	}

	want := query.Progress{
		JobID:      j.ID,
		Status:     job.StatusProcessing,
		Total:      8,
		Completed:  3,
		Failed:     1,
		Percentage: 50,
		UpdatedAt:  j.UpdatedAt,
	}
	if p != want {
		t.Errorf("progress = %+v, want %+v", p, want)
	}
}

func TestService_ProgressMissingJob(t *testing.T) {
	t.Parallel()
	svc, _ := setup(t)

	if _, err := svc.Progress(context.Background(), id.NewJobID()); !errors.Is(err, jobcore.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestService_ListByRequester(t *testing.T) {
	t.Parallel()
	svc, d := setup(t)
	ctx := context.Background()

	for i := range 3 {
		mustHandle(t, d, &command.CreateJob{
			JobType:       job.TypeAuctionExport,
			CorrelationID: fmt.Sprintf("export-%d", i),
			RequestedBy:   "seller-7",
		})
	}
	mustHandle(t, d, &command.CreateJob{JobType: job.TypeAuctionExport, CorrelationID: "other", RequestedBy: "seller-8"})

	jobs, err := svc.ListByRequester(ctx, "seller-7", job.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 3 {
		t.Fatalf("jobs = %d, want 3", len(jobs))
	}
	for _, j := range jobs {
		if j.RequestedBy != "seller-7" {
			t.Errorf("unexpected requester %q", j.RequestedBy)
		}
	}

	page, err := svc.ListByRequester(ctx, "seller-7", job.ListOpts{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Errorf("page = %d, want 2", len(page))
	}
}

func TestService_Items(t *testing.T) {
	t.Parallel()
	svc, d := setup(t)
	ctx := context.Background()

	mustHandle(t, d, &command.CreateJob{
		JobType:       job.TypeAuctionExport,
		CorrelationID: "items",
		Items: []item.Draft{
			{Payload: []byte(`{"lot":2}`), SequenceNumber: 2},
			{Payload: []byte(`{"lot":1}`), SequenceNumber: 1},
		},
	})
	j, _ := svc.GetByCorrelationID(ctx, "items")

	items, err := svc.Items(ctx, j.ID, item.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].SequenceNumber != 1 || items[1].SequenceNumber != 2 {
		t.Fatalf("items not in sequence order: %+v", items)
	}

	mustHandle(t, d, &command.ReportJobItemResult{JobID: j.ID, JobItemID: items[0].ID, IsSuccess: true})
	pending, err := svc.Items(ctx, j.ID, item.ListOpts{Status: item.StatusPending})
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID.String() != items[1].ID.String() {
		t.Errorf("pending items = %+v", pending)
	}
}

func TestService_Checkpoint(t *testing.T) {
	t.Parallel()
	svc, d := setup(t)
	ctx := context.Background()

	mustHandle(t, d, &command.InitializeStreamingJob{JobType: job.TypeAuctionImport, CorrelationID: "import"})
	j, _ := svc.GetByCorrelationID(ctx, "import")

	off := int64(25)
	mustHandle(t, d, &command.AddJobItemsBatch{
		JobID:        j.ID,
		Items:        []item.Draft{{Payload: []byte(`{}`)}},
		SourceOffset: &off,
	})

	cp, err := svc.Checkpoint(ctx, "import")
	if err != nil {
		t.Fatal(err)
	}
	if cp.Offset != 25 || cp.BatchCount != 1 {
		t.Errorf("checkpoint = %+v", cp)
	}
}
