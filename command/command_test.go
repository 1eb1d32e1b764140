package command_test

import (
	"errors"
	"testing"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
)

func ptr[T any](v T) *T { return &v }

func TestValidate(t *testing.T) {
	jobID := id.NewJobID()
	itemID := id.NewItemID()

	tests := []struct {
		name  string
		cmd   command.Command
		valid bool
	}{
		{"create eager", &command.CreateJob{JobType: job.TypeAuctionImport, CorrelationID: "c", Items: []item.Draft{{}}}, true},
		{"create implicit item", &command.CreateJob{JobType: job.TypeAuctionImport, CorrelationID: "c"}, true},
		{"create bulk", &command.CreateJob{JobType: job.TypeAuctionExport, CorrelationID: "c", TotalItems: 10}, true},
		{"create missing type", &command.CreateJob{CorrelationID: "c"}, false},
		{"create missing correlation", &command.CreateJob{JobType: job.TypeAuctionImport}, false},
		{"create items and total", &command.CreateJob{JobType: job.TypeAuctionImport, CorrelationID: "c", TotalItems: 1, Items: []item.Draft{{}}}, false},
		{"create negative total", &command.CreateJob{JobType: job.TypeAuctionImport, CorrelationID: "c", TotalItems: -1}, false},
		{"create bad payload", &command.CreateJob{JobType: job.TypeAuctionImport, CorrelationID: "c", Payload: []byte("{")}, false},
		{"create bad priority", &command.CreateJob{JobType: job.TypeAuctionImport, CorrelationID: "c", Priority: ptr(job.Priority(9))}, false},
		{"create negative retries", &command.CreateJob{JobType: job.TypeAuctionImport, CorrelationID: "c", MaxRetryCount: ptr(-1)}, false},
		{"init streaming", &command.InitializeStreamingJob{JobType: job.TypeAuctionImport, CorrelationID: "c"}, true},
		{"add batch", &command.AddJobItemsBatch{JobID: jobID, Items: []item.Draft{{}}, SourceOffset: ptr(int64(1))}, true},
		{"add empty batch", &command.AddJobItemsBatch{JobID: jobID}, false},
		{"add zero offset", &command.AddJobItemsBatch{JobID: jobID, Items: []item.Draft{{}}, SourceOffset: ptr(int64(0))}, false},
		{"add wrong id prefix", &command.AddJobItemsBatch{JobID: itemID, Items: []item.Draft{{}}}, false},
		{"finalize", &command.FinalizeJobInitialization{JobID: jobID}, true},
		{"finalize nil id", &command.FinalizeJobInitialization{}, false},
		{"item result", &command.ReportJobItemResult{JobID: jobID, JobItemID: itemID, IsSuccess: true}, true},
		{"item result missing item", &command.ReportJobItemResult{JobID: jobID}, false},
		{"batch result", &command.ReportJobItemBatchResult{JobID: jobID, Results: []command.ItemResult{{JobItemID: itemID}}}, true},
		{"batch result empty", &command.ReportJobItemBatchResult{JobID: jobID}, false},
		{"batch result duplicate", &command.ReportJobItemBatchResult{JobID: jobID, Results: []command.ItemResult{{JobItemID: itemID}, {JobItemID: itemID}}}, false},
		{"progress", &command.ReportJobBatchProgress{CorrelationID: "c", CompletedCount: 1}, true},
		{"progress negative", &command.ReportJobBatchProgress{CorrelationID: "c", FailedCount: -1}, false},
		{"fail", &command.FailJobByCorrelation{CorrelationID: "c", ErrorMessage: "x"}, true},
		{"fail missing correlation", &command.FailJobByCorrelation{}, false},
		{"start", &command.StartJob{JobID: jobID}, true},
		{"cancel", &command.CancelJob{JobID: jobID}, true},
		{"cancel nil id", &command.CancelJob{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cmd.Validate()
			if tt.valid && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.valid && !errors.Is(err, jobcore.ErrInvalidCommand) {
				t.Fatalf("err = %v, want ErrInvalidCommand", err)
			}
		})
	}
}

func TestCreateJobMode(t *testing.T) {
	if m := (&command.CreateJob{TotalItems: 5}).Mode(); m != job.ModeBulk {
		t.Errorf("Mode = %q, want bulk", m)
	}
	if m := (&command.CreateJob{}).Mode(); m != job.ModeEager {
		t.Errorf("Mode = %q, want eager", m)
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := command.New("job.explode")
	if !errors.Is(err, jobcore.ErrUnknownCommand) || !errors.Is(err, jobcore.ErrInvalidCommand) {
		t.Errorf("err = %v, want ErrUnknownCommand wrapped in ErrInvalidCommand", err)
	}
}

func TestSubject(t *testing.T) {
	jobID := id.NewJobID()

	tests := []struct {
		cmd  command.Command
		want string
	}{
		{&command.CreateJob{CorrelationID: "c-1"}, "c-1"},
		{&command.ReportJobBatchProgress{CorrelationID: "c-2"}, "c-2"},
		{&command.StartJob{JobID: jobID}, jobID.String()},
		{&command.ReportJobItemBatchResult{JobID: jobID}, jobID.String()},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := command.Subject(tt.cmd); got != tt.want {
			t.Errorf("Subject(%T) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}
