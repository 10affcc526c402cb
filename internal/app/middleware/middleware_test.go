package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padicrib/internal/app/commands"
	"padicrib/internal/app/middleware"
	"padicrib/internal/app/services/auth"
	"padicrib/internal/app/uow"
	"padicrib/internal/app/validation"
	domainuser "padicrib/internal/domain/user"
	"padicrib/internal/infra/storage/memory"
)

type receipt struct {
	Call int `json:"call"`
}

type chargeCommand struct {
	RequestKey string
	Amount     int `json:"amount" validate:"gt=0"`
}

func (chargeCommand) Key() string                     { return "test.charge" }
func (c chargeCommand) IdempotencyKey() string        { return c.RequestKey }
func (chargeCommand) ResultPrototype() any            { return &receipt{} }
func (chargeCommand) AllowedRoles() []domainuser.Role { return []domainuser.Role{domainuser.RoleOwner} }

type retryableErr struct{}

func (retryableErr) Error() string   { return "provider busy" }
func (retryableErr) Retryable() bool { return true }

func chargeBus(fn func(ctx context.Context, cmd chargeCommand) (receipt, error)) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, chargeCommand{}.Key(), commands.HandlerFunc[chargeCommand, receipt](fn))
	return bus
}

func TestChainRunsOutermostFirst(t *testing.T) {
	var order []string
	stage := func(name string) middleware.CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return commandBusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	bus := middleware.ChainCommands(chargeBus(func(context.Context, chargeCommand) (receipt, error) {
		order = append(order, "handler")
		return receipt{}, nil
	}), stage("a"), stage("b"))

	_, err := commands.Dispatch[chargeCommand, receipt](context.Background(), bus, chargeCommand{Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

type commandBusFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandBusFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	calls := 0
	bus := middleware.ChainCommands(chargeBus(func(context.Context, chargeCommand) (receipt, error) {
		calls++
		return receipt{Call: calls}, nil
	}), middleware.Idempotency(memory.NewIdempotencyStore(), nil))
	ctx := context.Background()

	first, err := commands.Dispatch[chargeCommand, receipt](ctx, bus, chargeCommand{RequestKey: "k1", Amount: 1})
	require.NoError(t, err)
	again, err := commands.Dispatch[chargeCommand, receipt](ctx, bus, chargeCommand{RequestKey: "k1", Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, calls)

	_, err = commands.Dispatch[chargeCommand, receipt](ctx, bus, chargeCommand{Amount: 1})
	require.NoError(t, err)
	_, err = commands.Dispatch[chargeCommand, receipt](ctx, bus, chargeCommand{Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "requests without a key always run")
}

func TestIdempotencyCachesFailuresUnlessRetryable(t *testing.T) {
	calls := 0
	var next error
	bus := middleware.ChainCommands(chargeBus(func(context.Context, chargeCommand) (receipt, error) {
		calls++
		return receipt{}, next
	}), middleware.Idempotency(memory.NewIdempotencyStore(), nil))
	ctx := context.Background()

	next = retryableErr{}
	_, err := commands.Dispatch[chargeCommand, receipt](ctx, bus, chargeCommand{RequestKey: "busy", Amount: 1})
	require.Error(t, err)
	next = nil
	_, err = commands.Dispatch[chargeCommand, receipt](ctx, bus, chargeCommand{RequestKey: "busy", Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	next = errors.New("card declined")
	_, err = commands.Dispatch[chargeCommand, receipt](ctx, bus, chargeCommand{RequestKey: "declined", Amount: 1})
	require.Error(t, err)
	next = nil
	_, err = commands.Dispatch[chargeCommand, receipt](ctx, bus, chargeCommand{RequestKey: "declined", Amount: 1})
	require.EqualError(t, err, "card declined")
	assert.Equal(t, 3, calls)
}

func TestValidationStopsBeforeHandler(t *testing.T) {
	called := false
	bus := middleware.ChainCommands(chargeBus(func(context.Context, chargeCommand) (receipt, error) {
		called = true
		return receipt{}, nil
	}), middleware.Validation(validation.New()))

	_, err := commands.Dispatch[chargeCommand, receipt](context.Background(), bus, chargeCommand{Amount: 0})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "amount")
	assert.False(t, called)
}

func TestRoleAuthorizer(t *testing.T) {
	bus := middleware.ChainCommands(chargeBus(func(context.Context, chargeCommand) (receipt, error) {
		return receipt{Call: 1}, nil
	}), middleware.Authorization(middleware.RoleAuthorizer{}))
	cmd := chargeCommand{Amount: 1}

	_, err := commands.Dispatch[chargeCommand, receipt](context.Background(), bus, cmd)
	assert.ErrorIs(t, err, middleware.ErrUnauthenticated)

	guest := auth.ContextWithPrincipal(context.Background(), auth.Principal{UserID: 1, Role: domainuser.RoleUser})
	_, err = commands.Dispatch[chargeCommand, receipt](guest, bus, cmd)
	assert.ErrorIs(t, err, middleware.ErrForbidden)

	owner := auth.ContextWithPrincipal(context.Background(), auth.Principal{UserID: 2, Role: domainuser.RoleOwner})
	res, err := commands.Dispatch[chargeCommand, receipt](owner, bus, cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Call)
}

type fakeUnit struct {
	uow.UnitOfWork
	commits, rollbacks int
}

func (u *fakeUnit) Commit(context.Context) error {
	u.commits++
	return nil
}

func (u *fakeUnit) Rollback(context.Context) error {
	u.rollbacks++
	return nil
}

type fakeFactory struct {
	begun int
	last  *fakeUnit
}

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	f.begun++
	f.last = &fakeUnit{}
	return f.last, nil
}

type settleCommand struct{ unmanaged bool }

func (settleCommand) Key() string       { return "test.settle" }
func (c settleCommand) Unmanaged() bool { return c.unmanaged }

func TestTransactionCommitsOrRollsBack(t *testing.T) {
	factory := &fakeFactory{}
	var fail error
	var sawUnit bool
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, settleCommand{}.Key(), commands.HandlerFunc[settleCommand, struct{}](func(ctx context.Context, _ settleCommand) (struct{}, error) {
		_, sawUnit = uow.FromContext(ctx)
		return struct{}{}, fail
	}))
	bus := middleware.ChainCommands(base, middleware.Transaction(factory, nil))
	ctx := context.Background()

	_, err := bus.Dispatch(ctx, settleCommand{})
	require.NoError(t, err)
	assert.True(t, sawUnit)
	assert.Equal(t, 1, factory.last.commits)
	assert.Equal(t, 0, factory.last.rollbacks)

	fail = errors.New("cascade failed")
	_, err = bus.Dispatch(ctx, settleCommand{})
	require.Error(t, err)
	assert.Equal(t, 0, factory.last.commits)
	assert.Equal(t, 1, factory.last.rollbacks)

	fail = nil
	_, err = bus.Dispatch(ctx, settleCommand{unmanaged: true})
	require.NoError(t, err)
	assert.False(t, sawUnit)
	assert.Equal(t, 2, factory.begun)

	outer := uow.ContextWithUnitOfWork(ctx, &fakeUnit{})
	_, err = bus.Dispatch(outer, settleCommand{})
	require.NoError(t, err)
	assert.Equal(t, 2, factory.begun, "an enclosing unit is reused")
}
