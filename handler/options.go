package handler

import (
	"log/slog"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/ext"
	"github.com/xraph/jobcore/job"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry sets the job type registry. Defaults to job.DefaultRegistry().
func WithRegistry(r *job.Registry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// WithExtensions sets the extension registry that receives lifecycle events.
func WithExtensions(r *ext.Registry) Option {
	return func(d *Dispatcher) { d.extensions = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithConfig sets the handler configuration.
func WithConfig(c jobcore.Config) Option {
	return func(d *Dispatcher) { d.config = c }
}
