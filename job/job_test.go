package job_test

import (
	"errors"
	"testing"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
)

func newJob(mode job.Mode) *job.Job {
	return job.New(job.Params{
		Type:          job.TypeAuctionImport,
		CorrelationID: "corr-" + id.NewCommandID().String(),
		Mode:          mode,
		MaxRetryCount: 2,
		Priority:      job.PriorityNormal,
	})
}

func sized(t *testing.T, mode job.Mode, total int) *job.Job {
	t.Helper()
	j := newJob(mode)
	if err := j.IncrementTotalItems(total); err != nil {
		t.Fatalf("IncrementTotalItems: %v", err)
	}
	return j
}

func TestNew_InitialStatus(t *testing.T) {
	tests := []struct {
		mode job.Mode
		want job.Status
	}{
		{job.ModeEager, job.StatusPending},
		{job.ModeBulk, job.StatusPending},
		{job.ModeStreaming, job.StatusInitializing},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			j := newJob(tt.mode)
			if j.Status != tt.want {
				t.Errorf("Status = %q, want %q", j.Status, tt.want)
			}
			if j.ID.Prefix() != id.PrefixJob {
				t.Errorf("ID prefix = %q", j.ID.Prefix())
			}
			if j.ProgressPercentage() != 0 {
				t.Errorf("ProgressPercentage = %v, want 0", j.ProgressPercentage())
			}
		})
	}
}

func TestAddItem(t *testing.T) {
	j := newJob(job.ModeEager)

	it, err := j.AddItem([]byte(`{"lot":1}`), 1)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if it.JobID.String() != j.ID.String() {
		t.Errorf("item JobID = %q, want %q", it.JobID, j.ID)
	}
	if it.MaxRetryCount != j.MaxRetryCount {
		t.Errorf("item MaxRetryCount = %d, want %d", it.MaxRetryCount, j.MaxRetryCount)
	}
	if j.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1", j.TotalItems)
	}

	if err := j.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := j.AddItem(nil, 2); !errors.Is(err, jobcore.ErrInvalidTransition) {
		t.Errorf("AddItem after start: err = %v, want ErrInvalidTransition", err)
	}
}

func TestAddItems_RejectedForBulk(t *testing.T) {
	j := sized(t, job.ModeBulk, 3)
	if _, err := j.AddItems(item.Draft{SequenceNumber: 1}); !errors.Is(err, jobcore.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if j.TotalItems != 3 {
		t.Errorf("TotalItems = %d, want 3", j.TotalItems)
	}
}

func TestAcceptsItemBatches(t *testing.T) {
	finalized := newJob(job.ModeStreaming)
	if _, err := finalized.FinalizeInitialization(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	tests := []struct {
		name string
		job  *job.Job
		want bool
	}{
		{"initializing streaming", newJob(job.ModeStreaming), true},
		{"finalized streaming", finalized, false},
		{"pending eager", newJob(job.ModeEager), false},
		{"pending bulk", newJob(job.ModeBulk), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.job.AcceptsItemBatches(); got != tt.want {
				t.Errorf("AcceptsItemBatches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIncrementTotal_Guards(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*testing.T) *job.Job
		ok    bool
	}{
		{"initializing streaming", func(*testing.T) *job.Job { return newJob(job.ModeStreaming) }, true},
		{"pending bulk", func(*testing.T) *job.Job { return newJob(job.ModeBulk) }, true},
		{"pending streaming", func(t *testing.T) *job.Job {
			j := newJob(job.ModeStreaming)
			_ = j.IncrementTotalItems(1)
			if _, err := j.FinalizeInitialization(); err != nil {
				t.Fatalf("finalize: %v", err)
			}
			return j
		}, false},
		{"processing", func(t *testing.T) *job.Job {
			j := sized(t, job.ModeBulk, 2)
			_ = j.Start()
			return j
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			j := tt.setup(t)
			before := j.TotalItems
			err := j.IncrementTotalItems(3)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if j.TotalItems != before+3 {
					t.Errorf("TotalItems = %d, want %d", j.TotalItems, before+3)
				}
				return
			}
			if !errors.Is(err, jobcore.ErrInvalidTransition) {
				t.Errorf("err = %v, want ErrInvalidTransition", err)
			}
			if j.TotalItems != before {
				t.Errorf("TotalItems changed to %d", j.TotalItems)
			}
		})
	}

	if err := newJob(job.ModeBulk).IncrementTotalItems(-1); !errors.Is(err, jobcore.ErrInvalidTransition) {
		t.Errorf("negative increment: err = %v, want ErrInvalidTransition", err)
	}
}

func TestStart(t *testing.T) {
	j := sized(t, job.ModeBulk, 1)

	if err := j.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if j.Status != job.StatusProcessing || j.StartedAt == nil {
		t.Fatalf("status = %q startedAt=%v", j.Status, j.StartedAt)
	}
	started := *j.StartedAt

	if err := j.Start(); err != nil {
		t.Errorf("second Start should be a no-op, got %v", err)
	}
	if !j.StartedAt.Equal(started) {
		t.Error("StartedAt moved on repeated Start")
	}

	if err := newJob(job.ModeStreaming).Start(); !errors.Is(err, jobcore.ErrInvalidTransition) {
		t.Errorf("Start on initializing: err = %v, want ErrInvalidTransition", err)
	}
}

func TestRecordItem_CompletionStatus(t *testing.T) {
	tests := []struct {
		name    string
		failed  int
		want    job.Status
		wantPct float64
	}{
		{"all succeeded", 0, job.StatusCompleted, 100},
		{"some failed", 1, job.StatusCompletedWithErrors, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			j := sized(t, job.ModeEager, 3)

			for i := 0; i < 3; i++ {
				var (
					eff job.Effects
					err error
				)
				if i < tt.failed {
					eff, err = j.RecordItemFailed()
				} else {
					eff, err = j.RecordItemCompleted()
				}
				if err != nil {
					t.Fatalf("record %d: %v", i, err)
				}
				if i == 0 && !eff.Started {
					t.Error("first outcome should auto-start the job")
				}
				if i == 2 && !eff.Finished() {
					t.Error("last outcome should finish the job")
				}
			}

			if j.Status != tt.want {
				t.Errorf("Status = %q, want %q", j.Status, tt.want)
			}
			if j.ProgressPercentage() != tt.wantPct {
				t.Errorf("ProgressPercentage = %v, want %v", j.ProgressPercentage(), tt.wantPct)
			}
			if j.CompletedAt == nil {
				t.Error("CompletedAt should be set")
			}
		})
	}
}

func TestRecordBatch_ClampsOverflow(t *testing.T) {
	j := sized(t, job.ModeBulk, 10)

	eff, err := j.RecordBatch(6, 2)
	if err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}
	if eff.Overflow != 0 || j.Status != job.StatusProcessing {
		t.Fatalf("unexpected effects %+v status %q", eff, j.Status)
	}

	eff, err = j.RecordBatch(5, 5)
	if err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}
	if eff.Completed != 2 || eff.Failed != 0 || eff.Overflow != 8 {
		t.Errorf("effects = %+v, want completed=2 failed=0 overflow=8", eff)
	}
	if j.Outcomes() > j.TotalItems {
		t.Errorf("outcomes %d exceed total %d", j.Outcomes(), j.TotalItems)
	}
	if j.Status != job.StatusCompletedWithErrors {
		t.Errorf("Status = %q, want completed_with_errors", j.Status)
	}
}

func TestRecordBatch_Wrappers(t *testing.T) {
	j := sized(t, job.ModeBulk, 4)

	if _, err := j.RecordBatchCompleted(3); err != nil {
		t.Fatalf("RecordBatchCompleted: %v", err)
	}
	if _, err := j.RecordBatchFailed(1); err != nil {
		t.Fatalf("RecordBatchFailed: %v", err)
	}
	if j.CompletedItems != 3 || j.FailedItems != 1 {
		t.Errorf("counts = %d/%d, want 3/1", j.CompletedItems, j.FailedItems)
	}
}

func TestRecordBatch_NegativeRejected(t *testing.T) {
	j := sized(t, job.ModeBulk, 4)
	if _, err := j.RecordBatch(-1, 0); !errors.Is(err, jobcore.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestProgressWhileInitializing(t *testing.T) {
	j := sized(t, job.ModeStreaming, 2)

	eff, err := j.RecordBatch(2, 0)
	if err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}
	if eff.Started || j.Status != job.StatusInitializing {
		t.Fatalf("initializing job must not be promoted: %+v %q", eff, j.Status)
	}
	if j.CompletedItems != 2 {
		t.Errorf("CompletedItems = %d, want 2", j.CompletedItems)
	}
	if pct := j.ProgressPercentage(); pct != 0 {
		t.Errorf("ProgressPercentage while initializing = %v, want 0", pct)
	}

	eff, err = j.FinalizeInitialization()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if j.Status != job.StatusCompleted || !eff.Finished() {
		t.Errorf("Status = %q, want completed after finalizing a fully reported job", j.Status)
	}
}

func TestFinalize(t *testing.T) {
	j := sized(t, job.ModeStreaming, 5)

	eff, err := j.FinalizeInitialization()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if eff.From != job.StatusInitializing || eff.To != job.StatusPending {
		t.Errorf("effects = %+v, want initializing → pending", eff)
	}

	if _, err := j.FinalizeInitialization(); !errors.Is(err, jobcore.ErrInvalidTransition) {
		t.Errorf("second finalize: err = %v, want ErrInvalidTransition", err)
	}

	empty := newJob(job.ModeStreaming)
	if _, err := empty.FinalizeInitialization(); err != nil {
		t.Fatalf("finalize empty: %v", err)
	}
	if empty.Status != job.StatusCompleted {
		t.Errorf("empty streaming job status = %q, want completed", empty.Status)
	}
}

func TestFailAndCancel(t *testing.T) {
	tests := []struct {
		name   string
		act    func(*job.Job) error
		status job.Status
	}{
		{"fail", func(j *job.Job) error { return j.Fail("stalled") }, job.StatusFailed},
		{"cancel", func(j *job.Job) error { return j.Cancel() }, job.StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for _, mode := range []job.Mode{job.ModeStreaming, job.ModeBulk} {
				j := newJob(mode)
				if err := tt.act(j); err != nil {
					t.Fatalf("%s: %v", mode, err)
				}
				if j.Status != tt.status {
					t.Errorf("%s: Status = %q, want %q", mode, j.Status, tt.status)
				}
			}
		})
	}

	j := newJob(job.ModeBulk)
	_ = j.Fail("stalled")
	if j.ErrorMessage != "stalled" {
		t.Errorf("ErrorMessage = %q, want stalled", j.ErrorMessage)
	}
}

func TestTerminalRejectsEverything(t *testing.T) {
	events := []job.Event{
		job.IncrementTotal{N: 1},
		job.Start{},
		job.Progress{Completed: 1},
		job.Finalize{},
		job.Fail{Reason: "again"},
		job.Cancel{},
	}

	j := sized(t, job.ModeBulk, 1)
	if _, err := j.RecordItemCompleted(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	snapshot := *j

	for _, ev := range events {
		_, err := job.Apply(j, ev)
		if !errors.Is(err, jobcore.ErrAlreadyTerminal) || !errors.Is(err, jobcore.ErrInvalidTransition) {
			t.Errorf("Apply(%T) err = %v, want terminal transition error", ev, err)
		}
	}
	if j.Status != snapshot.Status || j.CompletedItems != snapshot.CompletedItems || j.ErrorMessage != "" {
		t.Errorf("terminal job mutated: %+v", j)
	}
}

func TestProgressPercentageMonotonic(t *testing.T) {
	j := sized(t, job.ModeBulk, 7)
	last := j.ProgressPercentage()

	for _, batch := range [][2]int{{1, 0}, {0, 0}, {2, 1}, {0, 2}, {5, 5}} {
		if _, err := j.RecordBatch(batch[0], batch[1]); err != nil && !errors.Is(err, jobcore.ErrAlreadyTerminal) {
			t.Fatalf("RecordBatch%v: %v", batch, err)
		}
		pct := j.ProgressPercentage()
		if pct < last {
			t.Fatalf("percentage decreased from %v to %v", last, pct)
		}
		last = pct
	}
	if last != 100 {
		t.Errorf("final percentage = %v, want 100", last)
	}
}

func TestBuilder(t *testing.T) {
	j := newJob(job.ModeStreaming)
	b, err := job.NewBuilder(j)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	items, err := b.Add(item.Draft{SequenceNumber: 1}, item.Draft{SequenceNumber: 2})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(items) != 2 || j.TotalItems != 2 {
		t.Fatalf("items=%d total=%d, want 2/2", len(items), j.TotalItems)
	}

	if _, err := b.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if b.Job().Status != job.StatusPending {
		t.Errorf("Status = %q, want pending", b.Job().Status)
	}

	if _, err := b.Add(item.Draft{}); !errors.Is(err, job.ErrBuilderSpent) {
		t.Errorf("Add after finalize: err = %v, want ErrBuilderSpent", err)
	}
	if _, err := b.Finalize(); !errors.Is(err, job.ErrBuilderSpent) {
		t.Errorf("second Finalize: err = %v, want ErrBuilderSpent", err)
	}

	if _, err := job.NewBuilder(j); !errors.Is(err, jobcore.ErrInvalidTransition) {
		t.Errorf("NewBuilder on pending job: err = %v, want ErrInvalidTransition", err)
	}
}

func TestPriority(t *testing.T) {
	if !job.PriorityHigh.Valid() || job.Priority(3).Valid() || job.Priority(-1).Valid() {
		t.Error("Valid() mismatch")
	}
	if job.PriorityLow.String() != "low" || job.PriorityNormal.String() != "normal" {
		t.Error("String() mismatch")
	}
}
