package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/checkpoint"
	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
	"github.com/xraph/jobcore/store"
)

// newJob resolves per-type defaults from the registry and builds a job.
func (d *Dispatcher) newJob(
	t job.Type,
	correlationID string,
	payload json.RawMessage,
	requestedBy string,
	maxRetryCount *int,
	priority *job.Priority,
	mode job.Mode,
) (*job.Job, error) {
	opts, ok := d.registry.Lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", jobcore.ErrInvalidCommand, jobcore.ErrUnknownJobType, t)
	}
	if maxRetryCount != nil {
		opts.MaxRetryCount = *maxRetryCount
	}
	if priority != nil {
		opts.Priority = *priority
	}

	return job.New(job.Params{
		Type:          t,
		CorrelationID: correlationID,
		Payload:       payload,
		RequestedBy:   requestedBy,
		Priority:      opts.Priority,
		MaxRetryCount: opts.MaxRetryCount,
		Mode:          mode,
	}), nil
}

// correlationTaken reports whether a job with the correlation id exists.
func correlationTaken(ctx context.Context, tx store.Tx, correlationID string) (bool, error) {
	_, err := tx.GetJobByCorrelationID(ctx, correlationID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, jobcore.ErrJobNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (d *Dispatcher) createJob(ctx context.Context, c *command.CreateJob) (Result, error) {
	if err := d.checkBatchSize(c.Kind(), len(c.Items)); err != nil {
		return "", err
	}
	j, err := d.newJob(c.JobType, c.CorrelationID, c.Payload, c.RequestedBy, c.MaxRetryCount, c.Priority, c.Mode())
	if err != nil {
		return "", err
	}

	var items []*item.Item
	switch {
	case c.TotalItems > 0:
		err = j.IncrementTotalItems(c.TotalItems)
	case len(c.Items) > 0:
		items, err = j.AddItems(c.Items...)
	default:
		// An eager job without items runs its payload as a single item.
		items, err = j.AddItems(item.Draft{Payload: c.Payload})
	}
	if err != nil {
		return "", err
	}

	return d.run(ctx, c.Kind(), func(ctx context.Context, tx store.Tx, ev *events) (Result, error) {
		return insertJob(ctx, tx, ev, j, items)
	})
}

func (d *Dispatcher) initializeStreamingJob(ctx context.Context, c *command.InitializeStreamingJob) (Result, error) {
	j, err := d.newJob(c.JobType, c.CorrelationID, c.Payload, c.RequestedBy, c.MaxRetryCount, c.Priority, job.ModeStreaming)
	if err != nil {
		return "", err
	}

	return d.run(ctx, c.Kind(), func(ctx context.Context, tx store.Tx, ev *events) (Result, error) {
		return insertJob(ctx, tx, ev, j, nil)
	})
}

func insertJob(ctx context.Context, tx store.Tx, ev *events, j *job.Job, items []*item.Item) (Result, error) {
	taken, err := correlationTaken(ctx, tx, j.CorrelationID)
	if err != nil {
		return "", err
	}
	if taken {
		return ResultDuplicate, nil
	}

	if err := tx.CreateJob(ctx, j); err != nil {
		return "", err
	}
	if len(items) > 0 {
		if err := tx.BulkCreateItems(ctx, items); err != nil {
			return "", err
		}
	}

	ev.created(j)
	return ResultApplied, nil
}

func (d *Dispatcher) addItemsBatch(ctx context.Context, c *command.AddJobItemsBatch) (Result, error) {
	if err := d.checkBatchSize(c.Kind(), len(c.Items)); err != nil {
		return "", err
	}

	return d.run(ctx, c.Kind(), func(ctx context.Context, tx store.Tx, _ *events) (Result, error) {
		j, res, err := lockJob(ctx, tx, c.JobID)
		if j == nil {
			return res, err
		}
		// Eager and bulk jobs are sized at creation.
		if !j.AcceptsItemBatches() {
			return ResultIgnored, nil
		}

		var cp *checkpoint.Checkpoint
		if c.SourceOffset != nil {
			cp, err = tx.GetCheckpoint(ctx, j.CorrelationID)
			switch {
			case errors.Is(err, jobcore.ErrCheckpointNotFound):
				cp = &checkpoint.Checkpoint{CorrelationID: j.CorrelationID, JobID: j.ID}
			case err != nil:
				return "", err
			case cp.Covers(*c.SourceOffset):
				return ResultDuplicate, nil
			}
		}

		b, err := job.NewBuilder(j)
		if err != nil {
			return "", err
		}
		items, err := b.Add(c.Items...)
		if err != nil {
			return "", err
		}

		if err := tx.UpdateJob(ctx, j); err != nil {
			return "", err
		}
		if err := tx.BulkCreateItems(ctx, items); err != nil {
			return "", err
		}
		if cp != nil {
			cp.Advance(*c.SourceOffset, time.Now().UTC())
			if err := tx.SaveCheckpoint(ctx, cp); err != nil {
				return "", err
			}
		}
		return ResultApplied, nil
	})
}

func (d *Dispatcher) finalizeInitialization(ctx context.Context, c *command.FinalizeJobInitialization) (Result, error) {
	return d.run(ctx, c.Kind(), func(ctx context.Context, tx store.Tx, ev *events) (Result, error) {
		j, res, err := lockJob(ctx, tx, c.JobID)
		if j == nil {
			return res, err
		}
		if j.Status != job.StatusInitializing {
			return ResultIgnored, nil
		}

		b, err := job.NewBuilder(j)
		if err != nil {
			return "", err
		}
		eff, err := b.Finalize()
		if err != nil {
			return "", err
		}

		if err := tx.UpdateJob(ctx, j); err != nil {
			return "", err
		}
		if err := tx.DeleteCheckpoint(ctx, j.CorrelationID); err != nil {
			return "", err
		}

		ev.progressed(j, eff)
		return ResultApplied, nil
	})
}
