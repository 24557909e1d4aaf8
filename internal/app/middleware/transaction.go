package middleware

import (
	"context"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction opens one unit of work per dispatch. Everything the handler
// stages, outbox records included, commits together or not at all.
func Transaction(factory uow.UoWFactory, optsFor TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (res any, err error) {
			var opts uow.TxOptions
			if optsFor != nil {
				opts = optsFor(cmd)
			}
			unit, txCtx, rollback, err := uow.Begin(ctx, factory, opts)
			if err != nil {
				return nil, err
			}
			defer func() {
				if err != nil {
					rollback()
				}
			}()

			if res, err = next.Dispatch(txCtx, cmd); err != nil {
				return nil, err
			}
			if err = unit.Commit(txCtx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
