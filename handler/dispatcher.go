package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/ext"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/job"
	"github.com/xraph/jobcore/store"
)

// Dispatcher routes commands to their handlers.
type Dispatcher struct {
	store      store.Store
	registry   *job.Registry
	extensions *ext.Registry
	logger     *slog.Logger
	config     jobcore.Config
}

// New creates a Dispatcher backed by the given store.
func New(s store.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  s,
		config: jobcore.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.registry == nil {
		d.registry = job.DefaultRegistry()
	}
	if d.extensions == nil {
		d.extensions = ext.NewRegistry(d.logger)
	}
	return d
}

// Registry returns the job type registry.
func (d *Dispatcher) Registry() *job.Registry { return d.registry }

// Handle validates cmd and applies it. It returns after the change has
// been committed. No-op outcomes are reported through the Result with a
// nil error.
func (d *Dispatcher) Handle(ctx context.Context, cmd command.Command) (Result, error) {
	if cmd == nil {
		return "", fmt.Errorf("%w: nil command", jobcore.ErrInvalidCommand)
	}
	if err := cmd.Validate(); err != nil {
		return "", err
	}

	switch c := cmd.(type) {
	case *command.CreateJob:
		return d.createJob(ctx, c)
	case *command.InitializeStreamingJob:
		return d.initializeStreamingJob(ctx, c)
	case *command.AddJobItemsBatch:
		return d.addItemsBatch(ctx, c)
	case *command.FinalizeJobInitialization:
		return d.finalizeInitialization(ctx, c)
	case *command.ReportJobItemResult:
		return d.reportItemResult(ctx, c)
	case *command.ReportJobItemBatchResult:
		return d.reportItemBatchResult(ctx, c)
	case *command.ReportJobBatchProgress:
		return d.reportBatchProgress(ctx, c)
	case *command.FailJobByCorrelation:
		return d.failByCorrelation(ctx, c)
	case *command.StartJob:
		return d.startJob(ctx, c)
	case *command.CancelJob:
		return d.cancelJob(ctx, c)
	default:
		return "", fmt.Errorf("%w: %w: %T", jobcore.ErrInvalidCommand, jobcore.ErrUnknownCommand, cmd)
	}
}

// txFunc is a handler body. It runs inside a transaction and queues
// lifecycle events on ev.
type txFunc func(ctx context.Context, tx store.Tx, ev *events) (Result, error)

// run executes fn in a transaction, then reports the outcome. Events are
// emitted only for applied commands whose transaction committed. Logging
// of the outcome is left to the engine middleware.
func (d *Dispatcher) run(ctx context.Context, kind command.Kind, fn txFunc) (Result, error) {
	var (
		res Result
		ev  events
	)
	err := d.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		ev = ev[:0]
		var err error
		res, err = fn(ctx, tx, &ev)
		return err
	})
	switch {
	case errors.Is(err, jobcore.ErrDuplicateCorrelation):
		// Lost a creation race on the correlation id.
		res = ResultDuplicate
	case err != nil:
		return "", err
	}

	if !res.Applied() {
		d.extensions.EmitCommandSkipped(ctx, string(kind), res.String())
		return res, nil
	}

	ev.emit(ctx, d.extensions)
	return res, nil
}

// lockJob loads and locks a job by id. A missing job yields
// ResultNotFound and a terminal job ResultAlreadyTerminal; both with a
// nil job.
func lockJob(ctx context.Context, tx store.Tx, jobID id.JobID) (*job.Job, Result, error) {
	j, err := tx.GetJobForUpdate(ctx, jobID)
	return checkJob(j, err)
}

// lockJobByCorrelation is lockJob keyed by correlation id.
func lockJobByCorrelation(ctx context.Context, tx store.Tx, correlationID string) (*job.Job, Result, error) {
	j, err := tx.GetJobByCorrelationIDForUpdate(ctx, correlationID)
	return checkJob(j, err)
}

func checkJob(j *job.Job, err error) (*job.Job, Result, error) {
	switch {
	case errors.Is(err, jobcore.ErrJobNotFound):
		return nil, ResultNotFound, nil
	case err != nil:
		return nil, "", err
	case j.IsTerminal():
		return nil, ResultAlreadyTerminal, nil
	}
	return j, "", nil
}

// checkBatchSize rejects batches above the configured maximum.
func (d *Dispatcher) checkBatchSize(kind command.Kind, n int) error {
	if d.config.MaxBatchSize > 0 && n > d.config.MaxBatchSize {
		return fmt.Errorf("%w: %s: batch of %d exceeds maximum %d",
			jobcore.ErrInvalidCommand, kind, n, d.config.MaxBatchSize)
	}
	return nil
}
