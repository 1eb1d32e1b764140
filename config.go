package jobcore

import "time"

// Config holds configuration shared by the command handlers.
type Config struct {
	// MaxBatchSize caps the number of items or results a single batch
	// command may carry. Larger batches are rejected as invalid.
	MaxBatchSize int

	// HandlerTimeout bounds a single command handler invocation,
	// including the storage transaction. Zero means unlimited.
	HandlerTimeout time.Duration

	// StrictReportingModes rejects count-only progress reports for jobs
	// that track addressable items, so one job is never advanced through
	// both reporting styles.
	StrictReportingModes bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:         5000,
		HandlerTimeout:       30 * time.Second,
		StrictReportingModes: true,
	}
}
