// Package middleware provides composable middleware for command handling.
//
// A [Middleware] is a function that wraps the dispatcher. Middleware are
// composed into a chain using [Chain] and applied around each command.
// They are applied right-to-left: the first middleware in the slice is the
// outermost wrapper.
//
//	// recover → logging → dispatcher
//	chain := middleware.Chain(middleware.Recover(logger), middleware.Logging(logger))
//
// # Built-in Middleware
//
//   - [Logging]: logs command kind, subject, duration, and result
//   - [Recover]: catches panics and converts them to errors
//   - [Timeout]: bounds handling, storage transaction included
//   - [Tracing]: wraps handling in an OpenTelemetry span
//   - [Metrics]: records per-kind duration and result counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, cmd command.Command, next middleware.Handler) (handler.Result, error) {
//	        // pre-processing
//	        res, err := next(ctx)
//	        // post-processing
//	        return res, err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., rate limiting).
package middleware
