package middleware

import (
	"context"

	"padicrib/internal/app/commands"
	"padicrib/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Unmanaged is implemented by commands that must not run inside a single
// transaction, typically because they call an external provider and open
// their own short units around it.
type Unmanaged interface {
	Unmanaged() bool
}

// Transaction wraps each command in a unit of work. The unit commits only if
// the handler returns no error; otherwise every write is rolled back and any
// AfterCommit hooks are discarded.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if u, ok := cmd.(Unmanaged); ok && u.Unmanaged() {
				return next.Dispatch(ctx, cmd)
			}
			if _, ok := uow.FromContext(ctx); ok {
				return next.Dispatch(ctx, cmd)
			}
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			execCtx := uow.ContextWithUnitOfWork(ctx, unit)
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			return res, nil
		})
	}
}
