package handler

import (
	"context"

	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/job"
	"github.com/xraph/jobcore/store"
)

// DefaultFailReason is recorded when FailJobByCorrelation carries no message.
const DefaultFailReason = "failed by request"

func (d *Dispatcher) failByCorrelation(ctx context.Context, c *command.FailJobByCorrelation) (Result, error) {
	return d.run(ctx, c.Kind(), func(ctx context.Context, tx store.Tx, ev *events) (Result, error) {
		j, res, err := lockJobByCorrelation(ctx, tx, c.CorrelationID)
		if j == nil {
			return res, err
		}

		reason := c.ErrorMessage
		if reason == "" {
			reason = DefaultFailReason
		}
		if err := j.Fail(reason); err != nil {
			return "", err
		}
		if err := tx.UpdateJob(ctx, j); err != nil {
			return "", err
		}
		if err := tx.DeleteCheckpoint(ctx, j.CorrelationID); err != nil {
			return "", err
		}

		ev.failed(j, reason)
		return ResultApplied, nil
	})
}

func (d *Dispatcher) startJob(ctx context.Context, c *command.StartJob) (Result, error) {
	return d.run(ctx, c.Kind(), func(ctx context.Context, tx store.Tx, ev *events) (Result, error) {
		j, res, err := lockJob(ctx, tx, c.JobID)
		if j == nil {
			return res, err
		}

		switch j.Status {
		case job.StatusProcessing:
			return ResultDuplicate, nil
		case job.StatusPending:
		default:
			return ResultIgnored, nil
		}

		if err := j.Start(); err != nil {
			return "", err
		}
		if err := tx.UpdateJob(ctx, j); err != nil {
			return "", err
		}

		ev.progressed(j, job.Effects{From: job.StatusPending, To: j.Status, Started: true})
		return ResultApplied, nil
	})
}

func (d *Dispatcher) cancelJob(ctx context.Context, c *command.CancelJob) (Result, error) {
	return d.run(ctx, c.Kind(), func(ctx context.Context, tx store.Tx, ev *events) (Result, error) {
		j, res, err := lockJob(ctx, tx, c.JobID)
		if j == nil {
			return res, err
		}

		if err := j.Cancel(); err != nil {
			return "", err
		}
		if err := tx.UpdateJob(ctx, j); err != nil {
			return "", err
		}
		if err := tx.DeleteCheckpoint(ctx, j.CorrelationID); err != nil {
			return "", err
		}

		ev.cancelled(j)
		return ResultApplied, nil
	})
}
