package middleware

import (
	"context"
	"time"

	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/handler"
)

// Timeout returns middleware that bounds each command's handling, storage
// transaction included. A zero or negative d disables the deadline.
// When the deadline is exceeded the transaction is rolled back and the
// command is left for redelivery.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ command.Command, next Handler) (handler.Result, error) {
		if d <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
