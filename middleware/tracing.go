package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/handler"
)

// tracerName is the instrumentation scope name for jobcore tracing.
const tracerName = "github.com/xraph/jobcore"

// Tracing returns middleware that wraps command handling in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop tracer
// is used and this middleware becomes a pass-through.
//
// Span attributes include: jobcore.command.kind, jobcore.command.subject and,
// once handled, jobcore.command.result.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, cmd command.Command, next Handler) (handler.Result, error) {
		ctx, span := tracer.Start(ctx, "jobcore.command.handle",
			trace.WithAttributes(
				attribute.String("jobcore.command.kind", string(cmd.Kind())),
				attribute.String("jobcore.command.subject", command.Subject(cmd)),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		res, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("jobcore.command.result", res.String()))
			span.SetStatus(codes.Ok, "")
		}

		return res, err
	}
}
