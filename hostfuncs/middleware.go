package hostfuncs

import (
	"context"

	"github.com/cfxwasm/sdk/domain/errors"
	"go.uber.org/zap"
)

// Middleware is a function that wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	timing := func(next Handler) Handler {
//	    return func(ctx context.Context, frame *CallFrame) error {
//	        start := time.Now()
//	        defer func() { observe(frame.Identifier, time.Since(start)) }()
//	        return next(ctx, frame)
//	    }
//	}
type Middleware func(next Handler) Handler

// PanicRecoveryMiddleware returns a middleware that catches panics and
// converts them to CRITICAL_ERROR instead of crashing the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, frame *CallFrame) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = NewPanicError(r)
				}
			}()
			return next(ctx, frame)
		}
	}
}

// LoggingMiddleware returns a middleware that logs native invocations at
// debug level and failures at warn level. Values handlers attached with
// Annotate are added to the outcome entry.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, frame *CallFrame) error {
			hash := frame.Identifier
			if hc, ok := ctx.(HostContext); ok {
				hash = hc.Native()
			}
			fields := []zap.Field{
				zap.String("native", formatHash(hash)),
				zap.Int("args", frame.NumArguments()),
			}

			logger.Debug("invoking native", fields...)
			err := next(ctx, frame)
			fields = append(fields, annotations(ctx)...)
			if err != nil {
				logger.Warn("native failed", append(fields,
					zap.Stringer("status", errors.Status(err)),
					zap.Error(err),
				)...)
				return err
			}
			logger.Debug("native completed", append(fields, zap.Int("results", frame.NumResults()))...)
			return nil
		}
	}
}
