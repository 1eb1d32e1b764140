// Package handler applies commands to the job and item aggregates.
//
// A [Dispatcher] routes each [command.Command] to its handler. Every
// handler runs lock, mutate, commit inside one [store.Tx]; Handle returns
// only after the transaction committed, so a transport may acknowledge
// the message once Handle returns without error.
//
// Delivery is at-least-once. Handlers are idempotent: a redelivered or
// out-of-date command is a no-op reported through [Result] rather than an
// error. Errors are returned only for invalid commands
// ([jobcore.ErrInvalidCommand]) and store failures, which a transport
// should treat as transient and redeliver.
//
// Lifecycle events are emitted to the [ext.Registry] after commit.
package handler
