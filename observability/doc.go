// Package observability provides OpenTelemetry-based metrics for jobcore.
// The MetricsExtension implements lifecycle hooks to record system-wide
// counters for job creation, completion, failure, cancellation, item
// retries and exhaustion, and skipped commands.
//
// For per-command tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
