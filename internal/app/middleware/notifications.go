package middleware

import (
	"context"
	"log/slog"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/policies"
)

// Notifications gives each dispatch a collector and hands the collected
// notices to notifier once the inner chain has committed. Delivery errors
// are logged and never change the command result.
func Notifications(notifier policies.Notifier, logger *slog.Logger) CommandMiddleware {
	if notifier == nil {
		panic("middleware: notifier required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			collector := &policies.Collector{}
			res, err := next.Dispatch(policies.ContextWithCollector(ctx, collector), cmd)
			notices := collector.Drain()
			if err != nil {
				return nil, err
			}
			for _, notice := range notices {
				if nErr := notifier.Notify(ctx, notice); nErr != nil {
					logger.Warn("notification delivery failed",
						"command", cmd.Key(),
						"recipient_id", notice.RecipientID,
						"kind", string(notice.Kind),
						"error", nErr)
				}
			}
			return res, nil
		})
	}
}
