// Package middleware provides composable middleware for command handling.
// Middleware wraps the dispatcher synchronously and can modify handling
// (recover from panics, bound the deadline, log, add tracing, etc.).
package middleware

import (
	"context"

	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/handler"
)

// Handler is the terminal function that applies the command.
type Handler func(ctx context.Context) (handler.Result, error)

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the command being handled, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, cmd command.Command, next Handler) (handler.Result, error)

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(recover, logging, timeout) executes as:
//
//	recover → logging → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, cmd command.Command, next Handler) (handler.Result, error) {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) (handler.Result, error) {
				return mw(ctx, cmd, prev)
			}
		}
		return h(ctx)
	}
}

// status maps a handling outcome to a low-cardinality label.
func status(res handler.Result, err error) string {
	if err != nil {
		return "error"
	}
	return res.String()
}
