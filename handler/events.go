package handler

import (
	"context"
	"time"

	"github.com/xraph/jobcore/ext"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
)

// events collects lifecycle notifications during a transaction. They are
// emitted only after the transaction committed.
type events []func(context.Context, *ext.Registry)

func (ev *events) add(fn func(context.Context, *ext.Registry)) {
	*ev = append(*ev, fn)
}

func (ev events) emit(ctx context.Context, r *ext.Registry) {
	for _, fn := range ev {
		fn(ctx, r)
	}
}

func (ev *events) created(j *job.Job) {
	ev.add(func(ctx context.Context, r *ext.Registry) { r.EmitJobCreated(ctx, j) })
}

// progressed queues the notifications implied by a job transition.
func (ev *events) progressed(j *job.Job, eff job.Effects) {
	if eff.Started {
		ev.add(func(ctx context.Context, r *ext.Registry) { r.EmitJobStarted(ctx, j) })
	}
	if eff.Applied() > 0 {
		ev.add(func(ctx context.Context, r *ext.Registry) { r.EmitJobProgressed(ctx, j, eff) })
	}
	if eff.Finished() {
		took := elapsed(j)
		ev.add(func(ctx context.Context, r *ext.Registry) { r.EmitJobCompleted(ctx, j, took) })
	}
}

func (ev *events) failed(j *job.Job, reason string) {
	ev.add(func(ctx context.Context, r *ext.Registry) { r.EmitJobFailed(ctx, j, reason) })
}

func (ev *events) cancelled(j *job.Job) {
	ev.add(func(ctx context.Context, r *ext.Registry) { r.EmitJobCancelled(ctx, j) })
}

func (ev *events) item(it *item.Item, outcome item.Outcome) {
	switch outcome {
	case item.OutcomeRetrying:
		ev.add(func(ctx context.Context, r *ext.Registry) { r.EmitItemRetrying(ctx, it) })
	case item.OutcomeExhausted:
		ev.add(func(ctx context.Context, r *ext.Registry) { r.EmitItemFailed(ctx, it) })
	}
}

// elapsed is the time from start (or creation, for jobs that never
// started) to completion.
func elapsed(j *job.Job) time.Duration {
	if j.CompletedAt == nil {
		return 0
	}
	from := j.CreatedAt
	if j.StartedAt != nil {
		from = *j.StartedAt
	}
	return j.CompletedAt.Sub(from)
}
