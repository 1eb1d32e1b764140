package job

// Options are the per-type defaults applied to new jobs.
type Options struct {
	// MaxRetryCount is the per-item retry budget when the command leaves it unset.
	MaxRetryCount int

	// Priority is used when the command leaves it unset.
	Priority Priority
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxRetryCount: 3,
		Priority:      PriorityNormal,
	}
}

// Option is a functional option for configuring a job type.
type Option func(*Options)

// WithMaxRetryCount sets the default per-item retry budget.
func WithMaxRetryCount(n int) Option {
	return func(o *Options) {
		o.MaxRetryCount = n
	}
}

// WithPriority sets the default priority.
func WithPriority(p Priority) Option {
	return func(o *Options) {
		o.Priority = p
	}
}
