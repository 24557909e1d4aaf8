package support

import (
	"context"

	"skillswap/internal/app/uow"
)

// BeginReadOnlyUnit reuses the unit already in ctx or opens a read-only one.
// cleanup is nil when the unit was borrowed.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	if unit, ok := uow.Current(ctx); ok {
		return unit, ctx, nil, nil
	}
	return uow.Begin(ctx, factory, uow.TxOptions{ReadOnly: true})
}

// WriteUnit is a unit of work a command handler either borrowed from the
// Transaction middleware or opened itself.
type WriteUnit struct {
	uow.UnitOfWork
	managed bool
	release func()
}

// BeginWriteUnit returns the transaction already in ctx or starts one. Callers
// must defer Release and call Commit on success.
func BeginWriteUnit(ctx context.Context, factory uow.UoWFactory) (*WriteUnit, context.Context, error) {
	if unit, ok := uow.Current(ctx); ok {
		return &WriteUnit{UnitOfWork: unit}, ctx, nil
	}
	unit, execCtx, release, err := uow.Begin(ctx, factory, uow.TxOptions{})
	if err != nil {
		return nil, ctx, err
	}
	return &WriteUnit{UnitOfWork: unit, managed: true, release: release}, execCtx, nil
}

// Commit is a no-op for borrowed units; the middleware commits those.
func (w *WriteUnit) Commit(ctx context.Context) error {
	if !w.managed {
		return nil
	}
	if err := w.UnitOfWork.Commit(ctx); err != nil {
		return err
	}
	w.release = nil
	return nil
}

func (w *WriteUnit) Release() {
	if w.managed && w.release != nil {
		w.release()
	}
}
