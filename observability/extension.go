package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/jobcore/ext"
	"github.com/xraph/jobcore/item"
	"github.com/xraph/jobcore/job"
)

// meterName is the instrumentation scope name for lifecycle metrics.
const meterName = "github.com/xraph/jobcore/observability"

// Compile-time interface checks.
var (
	_ ext.Extension      = (*MetricsExtension)(nil)
	_ ext.JobCreated     = (*MetricsExtension)(nil)
	_ ext.JobProgressed  = (*MetricsExtension)(nil)
	_ ext.JobCompleted   = (*MetricsExtension)(nil)
	_ ext.JobFailed      = (*MetricsExtension)(nil)
	_ ext.JobCancelled   = (*MetricsExtension)(nil)
	_ ext.ItemRetrying   = (*MetricsExtension)(nil)
	_ ext.ItemFailed     = (*MetricsExtension)(nil)
	_ ext.CommandSkipped = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics through an OTel
// meter. Register it as a jobcore extension to track creation rates,
// terminal outcomes, item retries, progress overflow and skipped commands.
// Job counters carry a "type" attribute.
type MetricsExtension struct {
	JobCreated      metric.Int64Counter
	JobCompleted    metric.Int64Counter
	JobFailed       metric.Int64Counter
	JobCancelled    metric.Int64Counter
	JobDuration     metric.Float64Histogram
	ItemsProcessed  metric.Int64Counter
	ItemRetried     metric.Int64Counter
	ItemFailed      metric.Int64Counter
	ProgressClamped metric.Int64Counter
	CommandSkipped  metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided meter.
// On instrument errors the OTel API hands back noop instruments, so the
// errors are ignored.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	duration, _ := meter.Float64Histogram("jobcore.job.duration",
		metric.WithDescription("Time from start to completion of a job in seconds"),
		metric.WithUnit("s"),
	)

	return &MetricsExtension{
		JobCreated:      counter("jobcore.job.created", "Jobs created"),
		JobCompleted:    counter("jobcore.job.completed", "Jobs completed, with or without errors"),
		JobFailed:       counter("jobcore.job.failed", "Jobs explicitly failed"),
		JobCancelled:    counter("jobcore.job.cancelled", "Jobs cancelled"),
		JobDuration:     duration,
		ItemsProcessed:  counter("jobcore.item.processed", "Item outcomes applied to job counters"),
		ItemRetried:     counter("jobcore.item.retried", "Item attempts that failed with retries left"),
		ItemFailed:      counter("jobcore.item.failed", "Items that exhausted their retries"),
		ProgressClamped: counter("jobcore.progress.clamped", "Reported outcomes dropped by the total clamp"),
		CommandSkipped:  counter("jobcore.command.skipped", "Commands handled as no-ops"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func typeAttr(j *job.Job) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("type", string(j.Type)))
}

// ── Job lifecycle hooks ─────────────────────────────

// OnJobCreated implements ext.JobCreated.
func (m *MetricsExtension) OnJobCreated(ctx context.Context, j *job.Job) error {
	m.JobCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", string(j.Type)),
		attribute.String("mode", string(j.Mode)),
	))
	return nil
}

// OnJobProgressed implements ext.JobProgressed.
func (m *MetricsExtension) OnJobProgressed(ctx context.Context, j *job.Job, eff job.Effects) error {
	m.ItemsProcessed.Add(ctx, int64(eff.Completed), metric.WithAttributes(
		attribute.String("type", string(j.Type)),
		attribute.String("outcome", "completed"),
	))
	m.ItemsProcessed.Add(ctx, int64(eff.Failed), metric.WithAttributes(
		attribute.String("type", string(j.Type)),
		attribute.String("outcome", "failed"),
	))
	if eff.Overflow > 0 {
		m.ProgressClamped.Add(ctx, int64(eff.Overflow), typeAttr(j))
	}
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	attrs := metric.WithAttributes(
		attribute.String("type", string(j.Type)),
		attribute.String("status", string(j.Status)),
	)
	m.JobCompleted.Add(ctx, 1, attrs)
	m.JobDuration.Record(ctx, elapsed.Seconds(), attrs)
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, j *job.Job, _ string) error {
	m.JobFailed.Add(ctx, 1, typeAttr(j))
	return nil
}

// OnJobCancelled implements ext.JobCancelled.
func (m *MetricsExtension) OnJobCancelled(ctx context.Context, j *job.Job) error {
	m.JobCancelled.Add(ctx, 1, typeAttr(j))
	return nil
}

// ── Item lifecycle hooks ────────────────────────────

// OnItemRetrying implements ext.ItemRetrying.
func (m *MetricsExtension) OnItemRetrying(ctx context.Context, _ *item.Item) error {
	m.ItemRetried.Add(ctx, 1)
	return nil
}

// OnItemFailed implements ext.ItemFailed.
func (m *MetricsExtension) OnItemFailed(ctx context.Context, _ *item.Item) error {
	m.ItemFailed.Add(ctx, 1)
	return nil
}

// ── Command hooks ───────────────────────────────────

// OnCommandSkipped implements ext.CommandSkipped.
func (m *MetricsExtension) OnCommandSkipped(ctx context.Context, kind, result string) error {
	m.CommandSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	))
	return nil
}
