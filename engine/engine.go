// Package engine wires the jobcore subsystems together. It creates the
// extension registry, job type registry, middleware chain, command
// dispatcher and query service, and provides the Dispatch entry point
// used by transports, the importer and the supervisor.
//
// This package exists to break the import cycle: the root jobcore package
// defines Entity (imported by job, item, etc.) and so cannot import
// those packages back. The engine package sits above all subsystem
// packages and below the application layer.
package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/jobcore"
	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/ext"
	"github.com/xraph/jobcore/handler"
	"github.com/xraph/jobcore/job"
	mw "github.com/xraph/jobcore/middleware"
	"github.com/xraph/jobcore/observability"
	"github.com/xraph/jobcore/query"
	"github.com/xraph/jobcore/store"
)

// instrumentationName is the OTel scope name used with custom providers.
const instrumentationName = "github.com/xraph/jobcore"

// Engine owns the command pipeline: middleware chain → dispatcher → store.
type Engine struct {
	store      store.Store
	config     jobcore.Config
	logger     *slog.Logger
	registry   *job.Registry
	extensions *ext.Registry
	dispatcher *handler.Dispatcher
	query      *query.Service
	chain      mw.Middleware

	exts []ext.Extension
	mws  []mw.Middleware

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithConfig sets the handler configuration. Defaults to jobcore.DefaultConfig().
func WithConfig(c jobcore.Config) Option {
	return func(eng *Engine) { eng.config = c }
}

// WithRegistry sets the job type registry. Defaults to job.DefaultRegistry().
func WithRegistry(r *job.Registry) Option {
	return func(eng *Engine) { eng.registry = r }
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.exts = append(eng.exts, e) }
}

// WithMiddleware adds middleware to the engine's chain. Custom middleware
// runs inside the default stack, closest to the dispatcher.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// When set, the tracing middleware uses this provider instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// When set, both the metrics middleware and the observability extension
// use this provider instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// New creates an Engine backed by s.
func New(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, jobcore.ErrNoStore
	}

	eng := &Engine{
		store:  s,
		config: jobcore.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.registry == nil {
		eng.registry = job.DefaultRegistry()
	}

	// Register the observability metrics extension first, then user
	// extensions in option order.
	eng.extensions = ext.NewRegistry(eng.logger)
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter(instrumentationName + "/observability")
		eng.extensions.Register(observability.NewMetricsExtensionWithMeter(meter))
	} else {
		eng.extensions.Register(observability.NewMetricsExtension())
	}
	for _, e := range eng.exts {
		eng.extensions.Register(e)
	}

	eng.dispatcher = handler.New(s,
		handler.WithRegistry(eng.registry),
		handler.WithExtensions(eng.extensions),
		handler.WithLogger(eng.logger),
		handler.WithConfig(eng.config),
	)
	eng.query = query.NewService(s)

	// Build tracing middleware (custom provider or global).
	tracingMw := mw.Tracing()
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	}

	// Build metrics middleware (custom provider or global).
	metricsMw := mw.Metrics()
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	}

	// Default middleware stack: recover → tracing → metrics → logging → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Timeout(eng.config.HandlerTimeout),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)
	eng.chain = mw.Chain(allMws...)

	return eng, nil
}

// Dispatch runs cmd through the middleware chain and the dispatcher. It
// returns after the resulting change has been committed.
func (eng *Engine) Dispatch(ctx context.Context, cmd command.Command) (handler.Result, error) {
	if cmd == nil {
		return eng.dispatcher.Handle(ctx, nil)
	}
	return eng.chain(ctx, cmd, func(ctx context.Context) (handler.Result, error) {
		return eng.dispatcher.Handle(ctx, cmd)
	})
}

// Stop notifies extensions of shutdown and closes the store.
func (eng *Engine) Stop(ctx context.Context) error {
	eng.extensions.EmitShutdown(ctx)
	return eng.store.Close()
}

// Store returns the backing store.
func (eng *Engine) Store() store.Store { return eng.store }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Registry returns the job type registry.
func (eng *Engine) Registry() *job.Registry { return eng.registry }

// Handler returns the underlying command dispatcher.
func (eng *Engine) Handler() *handler.Dispatcher { return eng.dispatcher }

// Query returns the read-side service.
func (eng *Engine) Query() *query.Service { return eng.query }

// Logger returns the engine's logger.
func (eng *Engine) Logger() *slog.Logger { return eng.logger }

// Config returns a copy of the engine's configuration.
func (eng *Engine) Config() jobcore.Config { return eng.config }
