package audithook

import (
	"context"
	"log/slog"
)

// LogRecorder writes audit events as structured log records.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder creates a LogRecorder. A nil logger uses slog.Default().
func NewLogRecorder(l *slog.Logger) *LogRecorder {
	if l == nil {
		l = slog.Default()
	}
	return &LogRecorder{logger: l}
}

// Record implements Recorder. Critical events are logged at error level,
// warnings at warn level and everything else at info level.
func (r *LogRecorder) Record(ctx context.Context, evt *AuditEvent) error {
	level := slog.LevelInfo
	switch evt.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityCritical:
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("action", evt.Action),
		slog.String("resource", evt.Resource),
		slog.String("resource_id", evt.ResourceID),
		slog.String("category", evt.Category),
		slog.String("outcome", evt.Outcome),
	}
	if evt.Actor != "" {
		attrs = append(attrs, slog.String("actor", evt.Actor))
	}
	if evt.Reason != "" {
		attrs = append(attrs, slog.String("reason", evt.Reason))
	}
	if len(evt.Metadata) > 0 {
		meta := make([]any, 0, len(evt.Metadata))
		for k, v := range evt.Metadata {
			meta = append(meta, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", meta...))
	}

	r.logger.LogAttrs(ctx, level, "audit", attrs...)
	return nil
}
