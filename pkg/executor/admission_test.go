package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arihonda/adaptexec/pkg/types"
)

type admissionKey struct{}

func TestEmptyAdmissionChainPassesThrough(t *testing.T) {
	chain := newAdmissionChain()
	ctx := context.Background()
	out, err := chain.apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, ctx, out)
}

func TestAdmissionChainRunsHooksInOrder(t *testing.T) {
	var order []int
	hookA := func(ctx context.Context, in context.Context) (context.Context, error) {
		order = append(order, 1)
		return context.WithValue(in, admissionKey{}, "a"), nil
	}
	hookB := func(ctx context.Context, in context.Context) (context.Context, error) {
		order = append(order, 2)
		assert.Equal(t, "a", in.Value(admissionKey{}))
		return context.WithValue(in, admissionKey{}, "b"), nil
	}

	chain := newAdmissionChain(hookA, hookB)
	out, err := chain.apply(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, "b", out.Value(admissionKey{}))
}

func TestAdmissionChainPropagatesRejection(t *testing.T) {
	boom := errors.New("rejected")
	hook := func(ctx context.Context, in context.Context) (context.Context, error) {
		return in, boom
	}

	chain := newAdmissionChain(hook)
	_, err := chain.apply(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestScheduleRollsBackCountersOnAdmissionRejection(t *testing.T) {
	boom := errors.New("rejected")
	cfg := fastTestConfig()
	r := NewReactor(types.NewRealClock())
	e := NewExecutor(r, types.NewRealClock(), WithConfig(cfg), WithAdmissionHooks(
		func(ctx context.Context, in context.Context) (context.Context, error) {
			return in, boom
		},
	))
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Shutdown(0) })

	before := e.metrics.tasksQueued.Load()
	err := e.Schedule(context.Background(), func(ctx context.Context) {}, 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, e.metrics.tasksQueued.Load())
}
