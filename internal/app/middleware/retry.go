package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"skillswap/internal/app/commands"
	"skillswap/internal/domain/shared/errs"
)

// RetryOnConflict re-runs the inner chain, transaction included, when it fails
// with errs.ErrConflict. The last conflict is returned once attempts run out.
func RetryOnConflict(attempts int, backoff time.Duration, logger *slog.Logger) CommandMiddleware {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			var lastErr error
			for attempt := 1; attempt <= attempts; attempt++ {
				res, err := next.Dispatch(ctx, cmd)
				if err == nil || !errors.Is(err, errs.ErrConflict) {
					return res, err
				}
				lastErr = err
				logger.Debug("command conflict, retrying", "command", cmd.Key(), "attempt", attempt, "error", err)
				if attempt == attempts {
					break
				}
				if backoff > 0 {
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(backoff * time.Duration(attempt)):
					}
				}
			}
			return nil, lastErr
		})
	}
}
