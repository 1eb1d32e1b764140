package command

import (
	"encoding/json"
	"fmt"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
)

// Kind names a command on the wire.
type Kind string

// Command kinds.
const (
	KindCreateJob                 Kind = "job.create"
	KindInitializeStreamingJob    Kind = "job.initialize_streaming"
	KindAddJobItemsBatch          Kind = "job.add_items_batch"
	KindFinalizeJobInitialization Kind = "job.finalize_initialization"
	KindReportJobItemResult       Kind = "item.report_result"
	KindReportJobItemBatchResult  Kind = "item.report_batch_result"
	KindReportJobBatchProgress    Kind = "job.report_batch_progress"
	KindFailJobByCorrelation      Kind = "job.fail_by_correlation"
	KindStartJob                  Kind = "job.start"
	KindCancelJob                 Kind = "job.cancel"
)

// Command is one member of the command union.
type Command interface {
	Kind() Kind
	Validate() error
}

// CreateJob creates an eager job (items up front, or one implicit item)
// or a bulk job (TotalItems only).
type CreateJob struct {
	JobType       job.Type        `json:"job_type"                  msgpack:"job_type"`
	CorrelationID string          `json:"correlation_id"            msgpack:"correlation_id"`
	Payload       json.RawMessage `json:"payload,omitempty"         msgpack:"payload,omitempty"`
	RequestedBy   string          `json:"requested_by,omitempty"    msgpack:"requested_by,omitempty"`
	MaxRetryCount *int            `json:"max_retry_count,omitempty" msgpack:"max_retry_count,omitempty"`
	Priority      *job.Priority   `json:"priority,omitempty"        msgpack:"priority,omitempty"`
	Items         []item.Draft    `json:"items,omitempty"           msgpack:"items,omitempty"`
	TotalItems    int             `json:"total_items,omitempty"     msgpack:"total_items,omitempty"`
}

// Mode returns the creation mode implied by the command.
func (c *CreateJob) Mode() job.Mode {
	if c.TotalItems > 0 {
		return job.ModeBulk
	}
	return job.ModeEager
}

// InitializeStreamingJob creates a streaming job in initializing.
type InitializeStreamingJob struct {
	JobType       job.Type        `json:"job_type"                  msgpack:"job_type"`
	CorrelationID string          `json:"correlation_id"            msgpack:"correlation_id"`
	Payload       json.RawMessage `json:"payload,omitempty"         msgpack:"payload,omitempty"`
	RequestedBy   string          `json:"requested_by,omitempty"    msgpack:"requested_by,omitempty"`
	MaxRetryCount *int            `json:"max_retry_count,omitempty" msgpack:"max_retry_count,omitempty"`
	Priority      *job.Priority   `json:"priority,omitempty"        msgpack:"priority,omitempty"`
}

// AddJobItemsBatch grows a job by a batch of items. SourceOffset, when
// set, is the source position just after the batch and is recorded in
// the job's checkpoint.
type AddJobItemsBatch struct {
	JobID        id.JobID     `json:"job_id"                  msgpack:"job_id"`
	Items        []item.Draft `json:"items"                   msgpack:"items"`
	SourceOffset *int64       `json:"source_offset,omitempty" msgpack:"source_offset,omitempty"`
}

// FinalizeJobInitialization locks the total of a streaming job.
type FinalizeJobInitialization struct {
	JobID id.JobID `json:"job_id" msgpack:"job_id"`
}

// ReportJobItemResult reports the outcome of one item attempt.
type ReportJobItemResult struct {
	JobID        id.JobID  `json:"job_id"                  msgpack:"job_id"`
	JobItemID    id.ItemID `json:"job_item_id"             msgpack:"job_item_id"`
	IsSuccess    bool      `json:"is_success"              msgpack:"is_success"`
	ErrorMessage string    `json:"error_message,omitempty" msgpack:"error_message,omitempty"`
}

// ItemResult is one entry of a [ReportJobItemBatchResult].
type ItemResult struct {
	JobItemID    id.ItemID `json:"job_item_id"             msgpack:"job_item_id"`
	IsSuccess    bool      `json:"is_success"              msgpack:"is_success"`
	ErrorMessage string    `json:"error_message,omitempty" msgpack:"error_message,omitempty"`
}

// ReportJobItemBatchResult reports many item outcomes of one job.
type ReportJobItemBatchResult struct {
	JobID   id.JobID     `json:"job_id"  msgpack:"job_id"`
	Results []ItemResult `json:"results" msgpack:"results"`
}

// ReportJobBatchProgress reports count-only outcomes for a bulk job.
type ReportJobBatchProgress struct {
	CorrelationID  string `json:"correlation_id"  msgpack:"correlation_id"`
	CompletedCount int    `json:"completed_count" msgpack:"completed_count"`
	FailedCount    int    `json:"failed_count"    msgpack:"failed_count"`
}

// FailJobByCorrelation forces a job to failed.
type FailJobByCorrelation struct {
	CorrelationID string `json:"correlation_id"          msgpack:"correlation_id"`
	ErrorMessage  string `json:"error_message,omitempty" msgpack:"error_message,omitempty"`
}

// StartJob moves a pending job to processing.
type StartJob struct {
	JobID id.JobID `json:"job_id" msgpack:"job_id"`
}

// CancelJob marks a job as cancelled.
type CancelJob struct {
	JobID id.JobID `json:"job_id" msgpack:"job_id"`
}

func (*CreateJob) Kind() Kind                 { return KindCreateJob }
func (*InitializeStreamingJob) Kind() Kind    { return KindInitializeStreamingJob }
func (*AddJobItemsBatch) Kind() Kind          { return KindAddJobItemsBatch }
func (*FinalizeJobInitialization) Kind() Kind { return KindFinalizeJobInitialization }
func (*ReportJobItemResult) Kind() Kind       { return KindReportJobItemResult }
func (*ReportJobItemBatchResult) Kind() Kind  { return KindReportJobItemBatchResult }
func (*ReportJobBatchProgress) Kind() Kind    { return KindReportJobBatchProgress }
func (*FailJobByCorrelation) Kind() Kind      { return KindFailJobByCorrelation }
func (*StartJob) Kind() Kind                  { return KindStartJob }
func (*CancelJob) Kind() Kind                 { return KindCancelJob }

// New returns a zero command of the given kind, ready to be decoded into.
func New(kind Kind) (Command, error) {
	switch kind {
	case KindCreateJob:
		return &CreateJob{}, nil
	case KindInitializeStreamingJob:
		return &InitializeStreamingJob{}, nil
	case KindAddJobItemsBatch:
		return &AddJobItemsBatch{}, nil
	case KindFinalizeJobInitialization:
		return &FinalizeJobInitialization{}, nil
	case KindReportJobItemResult:
		return &ReportJobItemResult{}, nil
	case KindReportJobItemBatchResult:
		return &ReportJobItemBatchResult{}, nil
	case KindReportJobBatchProgress:
		return &ReportJobBatchProgress{}, nil
	case KindFailJobByCorrelation:
		return &FailJobByCorrelation{}, nil
	case KindStartJob:
		return &StartJob{}, nil
	case KindCancelJob:
		return &CancelJob{}, nil
	default:
		return nil, fmt.Errorf("%w: %w: %q", jobcore.ErrInvalidCommand, jobcore.ErrUnknownCommand, kind)
	}
}

// Subject returns the identifier a command targets: the job id, or the
// correlation id for commands addressed by correlation.
func Subject(c Command) string {
	switch c := c.(type) {
	case *CreateJob:
		return c.CorrelationID
	case *InitializeStreamingJob:
		return c.CorrelationID
	case *AddJobItemsBatch:
		return c.JobID.String()
	case *FinalizeJobInitialization:
		return c.JobID.String()
	case *ReportJobItemResult:
		return c.JobID.String()
	case *ReportJobItemBatchResult:
		return c.JobID.String()
	case *ReportJobBatchProgress:
		return c.CorrelationID
	case *FailJobByCorrelation:
		return c.CorrelationID
	case *StartJob:
		return c.JobID.String()
	case *CancelJob:
		return c.JobID.String()
	default:
		return ""
	}
}
