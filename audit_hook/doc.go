// Package audithook is a jobcore extension that turns job lifecycle
// changes into audit events.
//
// Every committed creation, start, completion, failure and cancellation
// of a job, and every retry or exhaustion of an item, becomes one
// [AuditEvent] sent through a [Recorder]. Severity follows the outcome:
// info for normal operations, warning for item retries and cancellations,
// critical for terminal failures. Metadata carries the job type,
// correlation id, requester and counters.
//
// # Usage
//
//	eng, _ := engine.New(s,
//	    engine.WithExtension(audithook.New(audithook.NewLogRecorder(auditLogger))),
//	)
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionJobFailed,
//	        audithook.ActionJobCancelled,
//	    ),
//	)
package audithook
