// Package jobcore provides the job and work-item lifecycle core used by the
// auction platform's backend services for long-running and bulk background
// operations: batch imports, exports, and multi-step cross-service workflows.
//
// Callers submit commands over an at-least-once message transport. jobcore
// tracks each job and its items through a crash-resilient state machine,
// aggregates progress reported by many independent workers, and exposes
// final and partial outcomes.
//
// # Quick Start
//
//	s := memory.New()
//	eng, err := engine.New(s,
//	    engine.WithLogger(logger),
//	)
//	res, err := eng.Dispatch(ctx, &command.CreateJob{
//	    JobType:       job.TypeAuctionImport,
//	    CorrelationID: "import-2026-10-16",
//	    Items:         items,
//	})
//
// # Architecture
//
// Each subsystem (job, item, checkpoint) defines its own store interface.
// The composite store.Store implements all of them and provides the unit of
// work (InTx) that every command handler runs inside: lock the job row,
// mutate in memory, persist, commit, and only then acknowledge the message.
//
// # Runtime Pieces
//
// The engine package composes the command pipeline. Around it:
// transport/nats consumes commands from JetStream and settles each message
// after commit; ingest streams newline-delimited records into resumable
// streaming jobs; supervisor fails jobs that stopped making progress;
// progress mirrors snapshots into Redis; audit_hook writes an audit trail;
// query serves the read side.
//
// All entity IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package jobcore
