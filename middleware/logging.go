package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/handler"
)

// Logging returns middleware that logs every handled command with its
// result. Applied commands log at Info, no-ops at Debug and failures at
// Error.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, cmd command.Command, next Handler) (handler.Result, error) {
		start := time.Now()
		res, err := next(ctx)
		elapsed := time.Since(start)

		attrs := []any{
			slog.String("command", string(cmd.Kind())),
			slog.String("subject", command.Subject(cmd)),
			slog.Duration("elapsed", elapsed),
		}

		switch {
		case err != nil:
			logger.Error("command failed", append(attrs, slog.String("error", err.Error()))...)
		case res.Applied():
			logger.Info("command applied", attrs...)
		default:
			logger.Debug("command skipped", append(attrs, slog.String("result", res.String()))...)
		}

		return res, err
	}
}
