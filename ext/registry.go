package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time.
type jobCreatedEntry struct {
	name string
	hook JobCreated
}

type jobStartedEntry struct {
	name string
	hook JobStarted
}

type jobProgressedEntry struct {
	name string
	hook JobProgressed
}

type jobCompletedEntry struct {
	name string
	hook JobCompleted
}

type jobFailedEntry struct {
	name string
	hook JobFailed
}

type jobCancelledEntry struct {
	name string
	hook JobCancelled
}

type itemRetryingEntry struct {
	name string
	hook ItemRetrying
}

type itemFailedEntry struct {
	name string
	hook ItemFailed
}

type commandSkippedEntry struct {
	name string
	hook CommandSkipped
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	jobCreated     []jobCreatedEntry
	jobStarted     []jobStartedEntry
	jobProgressed  []jobProgressedEntry
	jobCompleted   []jobCompletedEntry
	jobFailed      []jobFailedEntry
	jobCancelled   []jobCancelledEntry
	itemRetrying   []itemRetryingEntry
	itemFailed     []itemFailedEntry
	commandSkipped []commandSkippedEntry
	shutdown       []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobCreated); ok {
		r.jobCreated = append(r.jobCreated, jobCreatedEntry{name, h})
	}
	if h, ok := e.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name, h})
	}
	if h, ok := e.(JobProgressed); ok {
		r.jobProgressed = append(r.jobProgressed, jobProgressedEntry{name, h})
	}
	if h, ok := e.(JobCompleted); ok {
		r.jobCompleted = append(r.jobCompleted, jobCompletedEntry{name, h})
	}
	if h, ok := e.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, jobFailedEntry{name, h})
	}
	if h, ok := e.(JobCancelled); ok {
		r.jobCancelled = append(r.jobCancelled, jobCancelledEntry{name, h})
	}
	if h, ok := e.(ItemRetrying); ok {
		r.itemRetrying = append(r.itemRetrying, itemRetryingEntry{name, h})
	}
	if h, ok := e.(ItemFailed); ok {
		r.itemFailed = append(r.itemFailed, itemFailedEntry{name, h})
	}
	if h, ok := e.(CommandSkipped); ok {
		r.commandSkipped = append(r.commandSkipped, commandSkippedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Job event emitters
// ──────────────────────────────────────────────────

// EmitJobCreated notifies all extensions that implement JobCreated.
func (r *Registry) EmitJobCreated(ctx context.Context, j *job.Job) {
	for _, e := range r.jobCreated {
		if err := e.hook.OnJobCreated(ctx, j); err != nil {
			r.logHookError("OnJobCreated", e.name, err)
		}
	}
}

// EmitJobStarted notifies all extensions that implement JobStarted.
func (r *Registry) EmitJobStarted(ctx context.Context, j *job.Job) {
	for _, e := range r.jobStarted {
		if err := e.hook.OnJobStarted(ctx, j); err != nil {
			r.logHookError("OnJobStarted", e.name, err)
		}
	}
}

// EmitJobProgressed notifies all extensions that implement JobProgressed.
func (r *Registry) EmitJobProgressed(ctx context.Context, j *job.Job, eff job.Effects) {
	for _, e := range r.jobProgressed {
		if err := e.hook.OnJobProgressed(ctx, j, eff); err != nil {
			r.logHookError("OnJobProgressed", e.name, err)
		}
	}
}

// EmitJobCompleted notifies all extensions that implement JobCompleted.
func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	for _, e := range r.jobCompleted {
		if err := e.hook.OnJobCompleted(ctx, j, elapsed); err != nil {
			r.logHookError("OnJobCompleted", e.name, err)
		}
	}
}

// EmitJobFailed notifies all extensions that implement JobFailed.
func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, reason string) {
	for _, e := range r.jobFailed {
		if err := e.hook.OnJobFailed(ctx, j, reason); err != nil {
			r.logHookError("OnJobFailed", e.name, err)
		}
	}
}

// EmitJobCancelled notifies all extensions that implement JobCancelled.
func (r *Registry) EmitJobCancelled(ctx context.Context, j *job.Job) {
	for _, e := range r.jobCancelled {
		if err := e.hook.OnJobCancelled(ctx, j); err != nil {
			r.logHookError("OnJobCancelled", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Item event emitters
// ──────────────────────────────────────────────────

// EmitItemRetrying notifies all extensions that implement ItemRetrying.
func (r *Registry) EmitItemRetrying(ctx context.Context, it *item.Item) {
	for _, e := range r.itemRetrying {
		if err := e.hook.OnItemRetrying(ctx, it); err != nil {
			r.logHookError("OnItemRetrying", e.name, err)
		}
	}
}

// EmitItemFailed notifies all extensions that implement ItemFailed.
func (r *Registry) EmitItemFailed(ctx context.Context, it *item.Item) {
	for _, e := range r.itemFailed {
		if err := e.hook.OnItemFailed(ctx, it); err != nil {
			r.logHookError("OnItemFailed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitCommandSkipped notifies all extensions that implement CommandSkipped.
func (r *Registry) EmitCommandSkipped(ctx context.Context, kind, result string) {
	for _, e := range r.commandSkipped {
		if err := e.hook.OnCommandSkipped(ctx, kind, result); err != nil {
			r.logHookError("OnCommandSkipped", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block the pipeline.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
