package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/middleware"
	"skillswap/internal/app/uow"
	"skillswap/internal/domain/shared/errs"
	"skillswap/internal/infra/storage/memory"
)

type echoCommand struct {
	Actor string
	Text  string
	IdKey string
}

func (echoCommand) Key() string { return "test.echo" }
func (c echoCommand) ActorID() string { return c.Actor }
func (c echoCommand) IdempotencyKey() string { return c.IdKey }
func (echoCommand) ResultPrototype() any { return new(echoResult) }
func (c echoCommand) Validate() error {
	if c.Text == "" {
		return fmt.Errorf("%w: text required", errs.ErrValidation)
	}
	return nil
}

type echoResult struct {
	Text  string `json:"text"`
	Calls int    `json:"calls"`
}

type echoHandler struct {
	calls int
	err   error
}

func (h *echoHandler) Handle(ctx context.Context, cmd echoCommand) (*echoResult, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	return &echoResult{Text: cmd.Text, Calls: h.calls}, nil
}

func newBus(h *echoHandler) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[echoCommand, *echoResult](bus, echoCommand{}.Key(), h)
	return bus
}

func TestChainRunsOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) middleware.CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	bus := middleware.Chain[commands.Bus](newBus(&echoHandler{}), tag("a"), tag("b"), tag("c"))

	_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Actor: "u1", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestAuthorizationAndValidation(t *testing.T) {
	h := &echoHandler{}
	bus := middleware.Chain[commands.Bus](newBus(h),
		middleware.Authorization(middleware.ActorRequired{}),
		middleware.Validation(middleware.MessageValidator{}),
	)
	ctx := context.Background()

	_, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Text: "hi"})
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Actor: "u1"})
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Zero(t, h.calls)
}

func TestIdempotencyReplaysFirstResult(t *testing.T) {
	h := &echoHandler{}
	bus := middleware.Chain[commands.Bus](newBus(h), middleware.Idempotency(memory.NewIdempotencyStore(), nil))
	ctx := context.Background()

	first, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Actor: "u1", Text: "one", IdKey: "k"})
	require.NoError(t, err)
	again, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Actor: "u1", Text: "two", IdKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, h.calls)

	// Same header from another actor is a different key.
	other, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Actor: "u2", Text: "two", IdKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "two", other.Text)
	assert.Equal(t, 2, h.calls)
}

func TestIdempotencySkipsFailures(t *testing.T) {
	h := &echoHandler{err: errs.ErrInvalidState}
	bus := middleware.Chain[commands.Bus](newBus(h), middleware.Idempotency(memory.NewIdempotencyStore(), nil))
	ctx := context.Background()
	cmd := echoCommand{Actor: "u1", Text: "one", IdKey: "k"}

	_, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, cmd)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	h.err = nil
	out, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, cmd)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Calls)
}

type fakeUnit struct {
	uow.UnitOfWork
	committed  bool
	rolledBack bool
	commitErr  error
}

func (u *fakeUnit) Commit(context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}

func (u *fakeUnit) Rollback(context.Context) error {
	if !u.committed {
		u.rolledBack = true
	}
	return nil
}

type fakeFactory struct{ unit *fakeUnit }

func (f fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	return f.unit, nil
}

func TestTransactionCommitsOnSuccess(t *testing.T) {
	unit := &fakeUnit{}
	var sawUnit bool
	inner := commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		_, sawUnit = uow.Current(ctx)
		return "ok", nil
	})
	bus := middleware.Chain[commands.Bus](inner, middleware.Transaction(fakeFactory{unit}, nil))

	res, err := bus.Dispatch(context.Background(), echoCommand{})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.True(t, sawUnit)
	assert.True(t, unit.committed)
	assert.False(t, unit.rolledBack)
}

func TestTransactionRollsBackOnFailure(t *testing.T) {
	boom := errors.New("boom")
	unit := &fakeUnit{}
	inner := commands.BusFunc(func(context.Context, commands.Command) (any, error) { return nil, boom })
	bus := middleware.Chain[commands.Bus](inner, middleware.Transaction(fakeFactory{unit}, nil))

	_, err := bus.Dispatch(context.Background(), echoCommand{})
	assert.ErrorIs(t, err, boom)
	assert.True(t, unit.rolledBack)

	unit = &fakeUnit{commitErr: errs.ErrConflict}
	inner = commands.BusFunc(func(context.Context, commands.Command) (any, error) { return "ok", nil })
	bus = middleware.Chain[commands.Bus](inner, middleware.Transaction(fakeFactory{unit}, nil))
	_, err = bus.Dispatch(context.Background(), echoCommand{})
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.True(t, unit.rolledBack)
}

func TestRetryOnConflict(t *testing.T) {
	attempts := 0
	inner := commands.BusFunc(func(context.Context, commands.Command) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("%w: version moved", errs.ErrConflict)
		}
		return "done", nil
	})
	bus := middleware.Chain[commands.Bus](inner, middleware.RetryOnConflict(3, 0, nil))

	res, err := bus.Dispatch(context.Background(), echoCommand{})
	require.NoError(t, err)
	assert.Equal(t, "done", res)
	assert.Equal(t, 3, attempts)
}

func TestDispatchErrors(t *testing.T) {
	ctx := context.Background()
	_, err := commands.Dispatch[echoCommand, *echoResult](ctx, commands.NewInMemoryBus(), echoCommand{})
	assert.ErrorIs(t, err, commands.ErrHandlerNotFound)

	_, err = commands.Dispatch[echoCommand, string](ctx, newBus(&echoHandler{}), echoCommand{Text: "x"})
	assert.ErrorIs(t, err, commands.ErrResultType)

	_, err = commands.Dispatch[echoCommand, *echoResult](ctx, nil, echoCommand{})
	assert.ErrorIs(t, err, commands.ErrNilBus)
}
