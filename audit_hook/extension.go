package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/jobcore/ext"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*Extension)(nil)
	_ ext.JobCreated   = (*Extension)(nil)
	_ ext.JobStarted   = (*Extension)(nil)
	_ ext.JobCompleted = (*Extension)(nil)
	_ ext.JobFailed    = (*Extension)(nil)
	_ ext.JobCancelled = (*Extension)(nil)
	_ ext.ItemRetrying = (*Extension)(nil)
	_ ext.ItemFailed   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry of the audit trail.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges jobcore lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobCreated implements ext.JobCreated.
func (e *Extension) OnJobCreated(ctx context.Context, j *job.Job) error {
	return e.recordJob(ctx, ActionJobCreated, SeverityInfo, OutcomeSuccess, j, "",
		"mode", string(j.Mode),
		"priority", j.Priority.String(),
		"total_items", j.TotalItems,
	)
}

// OnJobStarted implements ext.JobStarted.
func (e *Extension) OnJobStarted(ctx context.Context, j *job.Job) error {
	return e.recordJob(ctx, ActionJobStarted, SeverityInfo, OutcomeSuccess, j, "",
		"total_items", j.TotalItems,
	)
}

// OnJobCompleted implements ext.JobCompleted. A job that completed with
// errors is recorded as a failure outcome at warning severity.
func (e *Extension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	severity, outcome := SeverityInfo, OutcomeSuccess
	if j.FailedItems > 0 {
		severity, outcome = SeverityWarning, OutcomeFailure
	}
	return e.recordJob(ctx, ActionJobCompleted, severity, outcome, j, "",
		"status", string(j.Status),
		"completed_items", j.CompletedItems,
		"failed_items", j.FailedItems,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnJobFailed implements ext.JobFailed.
func (e *Extension) OnJobFailed(ctx context.Context, j *job.Job, reason string) error {
	return e.recordJob(ctx, ActionJobFailed, SeverityCritical, OutcomeFailure, j, reason,
		"completed_items", j.CompletedItems,
		"failed_items", j.FailedItems,
		"total_items", j.TotalItems,
	)
}

// OnJobCancelled implements ext.JobCancelled.
func (e *Extension) OnJobCancelled(ctx context.Context, j *job.Job) error {
	return e.recordJob(ctx, ActionJobCancelled, SeverityWarning, OutcomeFailure, j, "cancelled",
		"completed_items", j.CompletedItems,
		"total_items", j.TotalItems,
	)
}

// ── Item lifecycle hooks ────────────────────────────

// OnItemRetrying implements ext.ItemRetrying.
func (e *Extension) OnItemRetrying(ctx context.Context, it *item.Item) error {
	return e.record(ctx, ActionItemRetrying, SeverityWarning, OutcomeFailure,
		ResourceItem, it.ID.String(), CategoryItem, "", it.ErrorMessage,
		"job_id", it.JobID.String(),
		"retry_count", it.RetryCount,
		"max_retry_count", it.MaxRetryCount,
	)
}

// OnItemFailed implements ext.ItemFailed.
func (e *Extension) OnItemFailed(ctx context.Context, it *item.Item) error {
	return e.record(ctx, ActionItemExhausted, SeverityCritical, OutcomeFailure,
		ResourceItem, it.ID.String(), CategoryItem, "", it.ErrorMessage,
		"job_id", it.JobID.String(),
		"retry_count", it.RetryCount,
		"sequence_number", it.SequenceNumber,
	)
}

// ── Internal helpers ────────────────────────────────

func (e *Extension) recordJob(
	ctx context.Context,
	action, severity, outcome string,
	j *job.Job,
	reason string,
	kvPairs ...any,
) error {
	kvPairs = append(kvPairs,
		"job_type", string(j.Type),
		"correlation_id", j.CorrelationID,
	)
	return e.record(ctx, action, severity, outcome,
		ResourceJob, j.ID.String(), CategoryJob, j.RequestedBy, reason, kvPairs...)
}

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
// Recorder failures are logged, never returned, so the audit trail cannot
// hold up command handling.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category, actor, reason string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Actor:      actor,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
