package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/handler"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, cmd command.Command, next Handler) (res handler.Result, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("command handler panicked",
					slog.String("command", string(cmd.Kind())),
					slog.String("subject", command.Subject(cmd)),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				res = ""
				retErr = fmt.Errorf("panic handling %s: %v", cmd.Kind(), r)
			}
		}()
		return next(ctx)
	}
}
