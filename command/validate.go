package command

import (
	"encoding/json"
	"fmt"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/id"
	"github.com/xraph/jobcore/job"
)

func invalid(kind Kind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", jobcore.ErrInvalidCommand, kind, fmt.Sprintf(format, args...))
}

func validateHeader(kind Kind, t job.Type, correlationID string, payload json.RawMessage, maxRetry *int, p *job.Priority) error {
	if t == "" {
		return invalid(kind, "job type is required")
	}
	if correlationID == "" {
		return invalid(kind, "correlation id is required")
	}
	if len(payload) > 0 && !json.Valid(payload) {
		return invalid(kind, "payload is not valid JSON")
	}
	if maxRetry != nil && *maxRetry < 0 {
		return invalid(kind, "max retry count %d is negative", *maxRetry)
	}
	if p != nil && !p.Valid() {
		return invalid(kind, "unknown priority %d", int(*p))
	}
	return nil
}

func validateJobID(kind Kind, jobID id.JobID) error {
	if jobID.IsNil() {
		return invalid(kind, "job id is required")
	}
	if jobID.Prefix() != id.PrefixJob {
		return invalid(kind, "job id %q has prefix %q", jobID, jobID.Prefix())
	}
	return nil
}

func validateItemID(kind Kind, itemID id.ItemID) error {
	if itemID.IsNil() {
		return invalid(kind, "job item id is required")
	}
	if itemID.Prefix() != id.PrefixItem {
		return invalid(kind, "job item id %q has prefix %q", itemID, itemID.Prefix())
	}
	return nil
}

// Validate checks the command shape.
func (c *CreateJob) Validate() error {
	if err := validateHeader(c.Kind(), c.JobType, c.CorrelationID, c.Payload, c.MaxRetryCount, c.Priority); err != nil {
		return err
	}
	if c.TotalItems < 0 {
		return invalid(c.Kind(), "total items %d is negative", c.TotalItems)
	}
	if c.TotalItems > 0 && len(c.Items) > 0 {
		return invalid(c.Kind(), "items and total items are mutually exclusive")
	}
	for i, it := range c.Items {
		if len(it.Payload) > 0 && !json.Valid(it.Payload) {
			return invalid(c.Kind(), "item %d payload is not valid JSON", i)
		}
	}
	return nil
}

// Validate checks the command shape.
func (c *InitializeStreamingJob) Validate() error {
	return validateHeader(c.Kind(), c.JobType, c.CorrelationID, c.Payload, c.MaxRetryCount, c.Priority)
}

// Validate checks the command shape.
func (c *AddJobItemsBatch) Validate() error {
	if err := validateJobID(c.Kind(), c.JobID); err != nil {
		return err
	}
	if len(c.Items) == 0 {
		return invalid(c.Kind(), "batch is empty")
	}
	for i, it := range c.Items {
		if len(it.Payload) > 0 && !json.Valid(it.Payload) {
			return invalid(c.Kind(), "item %d payload is not valid JSON", i)
		}
	}
	if c.SourceOffset != nil && *c.SourceOffset <= 0 {
		return invalid(c.Kind(), "source offset %d must be positive", *c.SourceOffset)
	}
	return nil
}

// Validate checks the command shape.
func (c *FinalizeJobInitialization) Validate() error {
	return validateJobID(c.Kind(), c.JobID)
}

// Validate checks the command shape.
func (c *ReportJobItemResult) Validate() error {
	if err := validateJobID(c.Kind(), c.JobID); err != nil {
		return err
	}
	return validateItemID(c.Kind(), c.JobItemID)
}

// Validate checks the command shape. An item may appear at most once per
// batch.
func (c *ReportJobItemBatchResult) Validate() error {
	if err := validateJobID(c.Kind(), c.JobID); err != nil {
		return err
	}
	if len(c.Results) == 0 {
		return invalid(c.Kind(), "results are empty")
	}
	seen := make(map[string]struct{}, len(c.Results))
	for _, r := range c.Results {
		if err := validateItemID(c.Kind(), r.JobItemID); err != nil {
			return err
		}
		key := r.JobItemID.String()
		if _, dup := seen[key]; dup {
			return invalid(c.Kind(), "job item %s reported twice", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Validate checks the command shape.
func (c *ReportJobBatchProgress) Validate() error {
	if c.CorrelationID == "" {
		return invalid(c.Kind(), "correlation id is required")
	}
	if c.CompletedCount < 0 || c.FailedCount < 0 {
		return invalid(c.Kind(), "counts %d/%d must not be negative", c.CompletedCount, c.FailedCount)
	}
	return nil
}

// Validate checks the command shape.
func (c *FailJobByCorrelation) Validate() error {
	if c.CorrelationID == "" {
		return invalid(c.Kind(), "correlation id is required")
	}
	return nil
}

// Validate checks the command shape.
func (c *StartJob) Validate() error {
	return validateJobID(c.Kind(), c.JobID)
}

// Validate checks the command shape.
func (c *CancelJob) Validate() error {
	return validateJobID(c.Kind(), c.JobID)
}
