// Package ext defines the extension system for jobcore.
// Extensions are notified of lifecycle events (job created, progressed,
// completed, failed, etc.) after the change has been committed, and can
// react to them: metrics, progress push, audit, etc.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobCreated is called after a job is created in any mode.
type JobCreated interface {
	OnJobCreated(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a job enters processing.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobProgressed is called after outcomes are applied to a job's counters.
type JobProgressed interface {
	OnJobProgressed(ctx context.Context, j *job.Job, eff job.Effects) error
}

// JobCompleted is called when a job reaches completed or
// completed_with_errors.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when a job is explicitly failed.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, reason string) error
}

// JobCancelled is called when a job is cancelled.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job) error
}

// ──────────────────────────────────────────────────
// Item lifecycle hooks
// ──────────────────────────────────────────────────

// ItemRetrying is called when an item attempt failed with retries left.
type ItemRetrying interface {
	OnItemRetrying(ctx context.Context, it *item.Item) error
}

// ItemFailed is called when an item exhausted its retries.
type ItemFailed interface {
	OnItemFailed(ctx context.Context, it *item.Item) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// CommandSkipped is called when a command was handled as a no-op
// (duplicate, not found, already terminal, or ignored).
type CommandSkipped interface {
	OnCommandSkipped(ctx context.Context, kind, result string) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
