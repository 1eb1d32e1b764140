// Package ext defines the extension system for jobcore.
//
// Extensions are notified of lifecycle events after the underlying state
// change has been committed. Each lifecycle hook is a separate interface
// so extensions opt in only to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
//	    log.Printf("job %s completed in %s", j.ID, elapsed)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobCreated]: job was created (eager, bulk, or streaming)
//   - [JobStarted]: job entered processing
//   - [JobProgressed]: outcomes were applied to the counters
//   - [JobCompleted]: job reached completed or completed_with_errors
//   - [JobFailed]: job was explicitly failed
//   - [JobCancelled]: job was cancelled
//
// # Item Lifecycle Hooks
//
//   - [ItemRetrying]: an item attempt failed with retries remaining
//   - [ItemFailed]: an item exhausted its retries
//
// # Other Hooks
//
//   - [CommandSkipped]: a command was handled as a no-op
//   - [Shutdown]: the engine is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hook errors are logged and
// never propagated.
package ext
