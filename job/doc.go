// Package job defines the job aggregate, its state machine, the streaming
// builder, the job type registry, and store interfaces.
//
// # Job Entity
//
// A [Job] is the top-level trackable unit of background work. It embeds
// [jobcore.Entity] for timestamps and carries aggregate counters:
//
//	initializing → pending → processing → completed
//	initializing → pending → processing → completed_with_errors
//	any non-terminal → failed
//	any non-terminal → cancelled
//
// Only streaming jobs start in initializing. Every mutation goes through
// [Apply], an exhaustive transition function over typed events; the
// convenience methods on Job delegate to it.
//
// Fields of note:
//   - CorrelationID: caller-chosen idempotency key, unique across jobs
//   - Mode: eager (addressable items), bulk (counts only), streaming
//   - TotalItems / CompletedItems / FailedItems: outcomes never exceed the total
//
// # Streaming Creation
//
// [Builder] wraps an initializing job and exposes only Add and Finalize:
//
//	b, _ := job.NewBuilder(j)
//	items, _ := b.Add(drafts...)
//	_, _ = b.Finalize()
//
// # Registry
//
// [Registry] holds the closed set of job types and their default options.
// [DefaultRegistry] contains the platform types.
package job
