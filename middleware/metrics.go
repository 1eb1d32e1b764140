package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/handler"
)

// meterName is the instrumentation scope name for jobcore metrics.
const meterName = "github.com/xraph/jobcore"

// Metrics returns middleware that records per-command handling metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - jobcore.command.duration (Float64Histogram): handling time in seconds,
//     with attributes: kind, status (a Result name or "error")
//   - jobcore.command.handled (Int64Counter): total handled commands,
//     with attributes: kind, status
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the API returns noop instruments, so the middleware
	// degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"jobcore.command.duration",
		metric.WithDescription("Duration of command handling in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr

	handled, hErr := meter.Int64Counter(
		"jobcore.command.handled",
		metric.WithDescription("Total number of handled commands"),
		metric.WithUnit("{command}"),
	)
	_ = hErr

	return func(ctx context.Context, cmd command.Command, next Handler) (handler.Result, error) {
		start := time.Now()
		res, err := next(ctx)
		elapsed := time.Since(start).Seconds()

		attrs := metric.WithAttributes(
			attribute.String("kind", string(cmd.Kind())),
			attribute.String("status", status(res, err)),
		)

		duration.Record(ctx, elapsed, attrs)
		handled.Add(ctx, 1, attrs)

		return res, err
	}
}
