package handler

import (
	"context"
	"log/slog"

	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/store"
)

// mark applies one reported attempt to an item.
func mark(it *item.Item, success bool, msg string) (item.Outcome, error) {
	if success {
		return it.MarkCompleted()
	}
	return it.MarkFailed(msg)
}

func (d *Dispatcher) reportItemResult(ctx context.Context, c *command.ReportJobItemResult) (Result, error) {
	return d.run(ctx, c.Kind(), func(ctx context.Context, tx store.Tx, ev *events) (Result, error) {
		j, res, err := lockJob(ctx, tx, c.JobID)
		if j == nil {
			return res, err
		}

		items, err := tx.GetItemsForUpdate(ctx, j.ID, []id.ItemID{c.JobItemID})
		if err != nil {
			return "", err
		}
		if len(items) == 0 {
			return ResultNotFound, nil
		}
		it := items[0]
		if it.IsTerminal() {
			return ResultAlreadyTerminal, nil
		}

		outcome, err := mark(it, c.IsSuccess, c.ErrorMessage)
		if err != nil {
			return "", err
		}
		if err := tx.UpdateItem(ctx, it); err != nil {
			return "", err
		}
		ev.item(it, outcome)

		if !outcome.Counted() {
			return ResultApplied, nil
		}

		if outcome == item.OutcomeCompleted {
			eff, err := j.RecordItemCompleted()
			if err != nil {
				return "", err
			}
			ev.progressed(j, eff)
		} else {
			eff, err := j.RecordItemFailed()
			if err != nil {
				return "", err
			}
			ev.progressed(j, eff)
		}
		if err := tx.UpdateJob(ctx, j); err != nil {
			return "", err
		}
		return ResultApplied, nil
	})
}

func (d *Dispatcher) reportItemBatchResult(ctx context.Context, c *command.ReportJobItemBatchResult) (Result, error) {
	if err := d.checkBatchSize(c.Kind(), len(c.Results)); err != nil {
		return "", err
	}

	return d.run(ctx, c.Kind(), func(ctx context.Context, tx store.Tx, ev *events) (Result, error) {
		j, res, err := lockJob(ctx, tx, c.JobID)
		if j == nil {
			return res, err
		}

		ids := make([]id.ItemID, len(c.Results))
		for i, r := range c.Results {
			ids[i] = r.JobItemID
		}
		items, err := tx.GetItemsForUpdate(ctx, j.ID, ids)
		if err != nil {
			return "", err
		}
		byID := make(map[string]*item.Item, len(items))
		for _, it := range items {
			byID[it.ID.String()] = it
		}

		var completed, failed, terminal, marked int
		for _, r := range c.Results {
			it, ok := byID[r.JobItemID.String()]
			if !ok {
				continue
			}
			if it.IsTerminal() {
				terminal++
				continue
			}

			outcome, err := mark(it, r.IsSuccess, r.ErrorMessage)
			if err != nil {
				return "", err
			}
			if err := tx.UpdateItem(ctx, it); err != nil {
				return "", err
			}
			ev.item(it, outcome)
			marked++

			switch outcome {
			case item.OutcomeCompleted:
				completed++
			case item.OutcomeExhausted:
				failed++
			}
		}

		if marked == 0 {
			if terminal > 0 {
				return ResultAlreadyTerminal, nil
			}
			return ResultNotFound, nil
		}
		if terminal > 0 || marked < len(c.Results) {
			d.logger.Debug("batch result partially skipped",
				slog.String("job_id", j.ID.String()),
				slog.Int("marked", marked),
				slog.Int("terminal", terminal),
				slog.Int("missing", len(c.Results)-marked-terminal),
			)
		}

		if completed+failed == 0 {
			return ResultApplied, nil
		}

		eff, err := j.RecordBatch(completed, failed)
		if err != nil {
			return "", err
		}
		if err := tx.UpdateJob(ctx, j); err != nil {
			return "", err
		}
		ev.progressed(j, eff)
		return ResultApplied, nil
	})
}

func (d *Dispatcher) reportBatchProgress(ctx context.Context, c *command.ReportJobBatchProgress) (Result, error) {
	return d.run(ctx, c.Kind(), func(ctx context.Context, tx store.Tx, ev *events) (Result, error) {
		j, res, err := lockJobByCorrelation(ctx, tx, c.CorrelationID)
		if j == nil {
			return res, err
		}
		if d.config.StrictReportingModes && j.HasAddressableItems() {
			d.logger.Warn("count-only progress for job with addressable items",
				slog.String("job_id", j.ID.String()),
				slog.String("mode", string(j.Mode)),
			)
			return ResultIgnored, nil
		}

		eff, err := j.RecordBatch(c.CompletedCount, c.FailedCount)
		if err != nil {
			return "", err
		}
		if eff.Overflow > 0 {
			d.logger.Warn("progress overflow clamped",
				slog.String("job_id", j.ID.String()),
				slog.Int("overflow", eff.Overflow),
				slog.Int("total_items", j.TotalItems),
			)
		}
		if err := tx.UpdateJob(ctx, j); err != nil {
			return "", err
		}

		ev.progressed(j, eff)
		return ResultApplied, nil
	})
}
