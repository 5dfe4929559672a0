package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/stockmaster/internal/pkg/stacktrace"
)

// dispatch runs handler with panic recovery and exponential backoff retries.
// It returns the last error once retries are exhausted or ctx ends.
func dispatch(ctx context.Context, co consumeOptions, handler Handler, msg Message) error {
	b := retry.WithMaxRetries(co.maxRetries, retry.NewExponential(co.backoff))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := safeCall(ctx, handler, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to handle message, skipped", "topic", msg.Topic(), "error", err)
	}

	return err
}

func safeCall(ctx context.Context, handler Handler, msg Message) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in messaging handler", "topic", msg.Topic(), "because", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in messaging handler", "topic", msg.Topic(), "because", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("messaging: panic in handler: %v", rvr)
		}
	}()

	return handler(ctx, msg)
}
