package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct{ n int }

func (ping) Key() string { return "test.ping" }

type other struct{}

func (other) Key() string { return "test.other" }

func TestDispatchRoutesByKey(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler(bus, ping{}.Key(), HandlerFunc[ping, int](func(_ context.Context, p ping) (int, error) {
		return p.n * 2, nil
	}))

	got, err := Dispatch[ping, int](context.Background(), bus, ping{n: 21})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Dispatch[other, int](context.Background(), bus, other{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Dispatch[ping, string](context.Background(), bus, ping{})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = Dispatch[ping, int](context.Background(), nil, ping{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestRegisterHandlerRejectsDuplicates(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[ping, int](func(context.Context, ping) (int, error) { return 0, nil })
	RegisterHandler(bus, ping{}.Key(), h)
	assert.Panics(t, func() { RegisterHandler(bus, ping{}.Key(), h) })
	assert.Equal(t, []string{"test.ping"}, bus.Keys())
}
