// Package store defines the aggregate persistence interface and the unit
// of work every command handler runs in.
package store

import (
	"context"

	"github.com/xraph/jobcore/checkpoint"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
)

// Tx is the unit of work handed to a [TxFunc]. Rows read through the
// ForUpdate variants stay locked until the transaction ends, and every
// write becomes visible to other transactions only on commit.
type Tx interface {
	job.Store
	item.Store
	checkpoint.Store
}

// TxFunc is the body of a unit of work. Returning a non-nil error rolls
// the transaction back and the error is returned from InTx unchanged.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is the aggregate persistence interface.
// A single backend (postgres, memory) implements all of it.
type Store interface {
	job.Reader
	item.Reader
	checkpoint.Reader

	// InTx runs fn inside one local transaction and commits if fn returns nil.
	InTx(ctx context.Context, fn TxFunc) error

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
