// Package item defines the job item aggregate, its retry state machine,
// and store interfaces.
//
// An [Item] is one independently retryable unit of a job's work. It moves
// through a small state machine:
//
//	pending → completed
//	pending → pending (failed, retries remaining)
//	pending → failed  (failed, retries exhausted)
//
// Every mutation goes through [Apply], which reports an [Outcome]. Only
// [OutcomeCompleted] and [OutcomeExhausted] are counted against the owning
// job; [OutcomeRetrying] leaves the job counters untouched.
package item
