package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arihonda/adaptexec/pkg/types"
)

func fastTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.SetReservedThreads(3)
	cfg.SetWorkerThreadRunTime(20 * time.Millisecond)
	cfg.SetRunTimeJitter(0)
	cfg.SetStuckThreadTimeout(30 * time.Millisecond)
	cfg.SetMaxQueueLatency(2 * time.Millisecond)
	cfg.SetIdlePctThreshold(60)
	return cfg
}

func newTestExecutor(t *testing.T, cfg *Config) (*Executor, Reactor) {
	t.Helper()
	r := NewReactor(types.NewRealClock())
	e := NewExecutor(r, types.NewRealClock(), WithConfig(cfg))
	t.Cleanup(func() { _ = e.Shutdown(time.Second) })
	return e, r
}

func TestStartSpawnsReservedThreads(t *testing.T) {
	cfg := fastTestConfig()
	cfg.SetReservedThreads(3)
	e, _ := newTestExecutor(t, cfg)

	require.NoError(t, e.Start())

	assert.Eventually(t, func() bool {
		return e.metrics.threadsRunning.Load() == 3
	}, time.Second, time.Millisecond)

	assert.Eventually(t, func() bool {
		return e.metrics.threadsPending.Load() == 0
	}, time.Second, time.Millisecond)
}

func TestStartTwiceFails(t *testing.T) {
	e, _ := newTestExecutor(t, fastTestConfig())
	require.NoError(t, e.Start())
	assert.ErrorIs(t, e.Start(), ErrAlreadyRunning)
}

func TestScheduleBeforeStartFails(t *testing.T) {
	e, _ := newTestExecutor(t, fastTestConfig())
	err := e.Schedule(context.Background(), func(ctx context.Context) {}, 0)
	assert.ErrorIs(t, err, ErrShutdownInProgress)
}

func TestScheduleRoundTripRestoresQueueCounters(t *testing.T) {
	e, _ := newTestExecutor(t, fastTestConfig())
	require.NoError(t, e.Start())

	before := e.metrics.totalQueued.Load()
	beforeExecuted := e.metrics.totalExecuted.Load()

	done := make(chan struct{})
	err := e.Schedule(context.Background(), func(ctx context.Context) { close(done) }, 0)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}

	assert.Eventually(t, func() bool {
		return e.metrics.tasksQueued.Load() == 0
	}, time.Second, time.Millisecond)

	assert.Equal(t, before+1, e.metrics.totalQueued.Load())
	assert.Eventually(t, func() bool {
		return e.metrics.totalExecuted.Load() == beforeExecuted+1
	}, time.Second, time.Millisecond)
}

func TestShutdownIsIdempotent(t *testing.T) {
	e, _ := newTestExecutor(t, fastTestConfig())
	require.NoError(t, e.Start())

	require.NoError(t, e.Shutdown(time.Second))
	assert.NoError(t, e.Shutdown(time.Second))
}

func TestShutdownDrainsThreadsAndZeroesRunning(t *testing.T) {
	e, _ := newTestExecutor(t, fastTestConfig())
	require.NoError(t, e.Start())

	assert.Eventually(t, func() bool {
		return e.metrics.threadsRunning.Load() == 3
	}, time.Second, time.Millisecond)

	require.NoError(t, e.Shutdown(2*time.Second))

	assert.Equal(t, int64(0), e.metrics.threadsRunning.Load())
	e.threadsMu.Lock()
	assert.Equal(t, 0, e.threads.Len())
	e.threadsMu.Unlock()
}

func TestStartThenShutdownWithNoTasksLeavesCountersAtZero(t *testing.T) {
	e, _ := newTestExecutor(t, fastTestConfig())
	require.NoError(t, e.Start())
	require.NoError(t, e.Shutdown(2*time.Second))

	assert.Equal(t, int64(0), e.metrics.totalExecuted.Load())
	assert.Equal(t, int64(0), e.metrics.totalQueued.Load())
}

func TestShutdownTimesOutWhileTaskStillRunning(t *testing.T) {
	cfg := fastTestConfig()
	cfg.SetWorkerThreadRunTime(5 * time.Second) // run interval outlasts the shutdown wait
	e, _ := newTestExecutor(t, cfg)
	require.NoError(t, e.Start())

	release := make(chan struct{})
	require.NoError(t, e.Schedule(context.Background(), func(ctx context.Context) {
		<-release
	}, 0))

	assert.Eventually(t, func() bool {
		return e.metrics.threadsInUse.Load() == 1
	}, time.Second, time.Millisecond)

	err := e.Shutdown(50 * time.Millisecond)
	assert.ErrorIs(t, err, ErrExceededTimeLimit)

	close(release)
}

func TestPanickingTaskReplacesWorkerWithoutStoppingThePool(t *testing.T) {
	cfg := fastTestConfig()
	cfg.SetReservedThreads(1)
	e, _ := newTestExecutor(t, cfg)
	require.NoError(t, e.Start())

	assert.Eventually(t, func() bool {
		return e.metrics.threadsRunning.Load() == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, e.Schedule(context.Background(), func(ctx context.Context) {
		panic("boom")
	}, 0))

	// The panicking worker retires and a replacement is spawned, so the
	// pool should settle back at exactly one running worker.
	assert.Eventually(t, func() bool {
		return e.metrics.threadsRunning.Load() == 1
	}, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	require.NoError(t, e.Schedule(context.Background(), func(ctx context.Context) { close(done) }, 0))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool stopped accepting work after a task panic")
	}
}

func TestRecursionCapForcesPostBeyondLimit(t *testing.T) {
	cfg := fastTestConfig()
	cfg.SetRecursionLimit(3)
	e, _ := newTestExecutor(t, cfg)
	require.NoError(t, e.Start())

	var depths []int32
	var mu sync.Mutex
	var remaining atomic.Int32
	remaining.Store(5)
	done := make(chan struct{})

	var schedule func(ctx context.Context, level int32)
	schedule = func(ctx context.Context, level int32) {
		mu.Lock()
		depths = append(depths, level)
		mu.Unlock()

		if remaining.Add(-1) <= 0 {
			close(done)
			return
		}
		_ = e.Schedule(ctx, func(ctx context.Context) {
			ts := threadStateFromContext(ctx)
			var d int32
			if ts != nil {
				d = int32(ts.recursionDepth)
			}
			schedule(ctx, d)
		}, MayRecurse)
	}

	require.NoError(t, e.Schedule(context.Background(), func(ctx context.Context) {
		schedule(ctx, 0)
	}, MayRecurse))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recursive chain never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, d := range depths {
		assert.LessOrEqual(t, d, int32(cfg.RecursionLimit()))
	}
}

func TestRecursionLimitOneForbidsInlineDispatch(t *testing.T) {
	cfg := fastTestConfig()
	cfg.SetRecursionLimit(1)
	e, _ := newTestExecutor(t, cfg)
	require.NoError(t, e.Start())

	outerDone := make(chan int)
	require.NoError(t, e.Schedule(context.Background(), func(ctx context.Context) {
		ts := threadStateFromContext(ctx)
		depthBefore := 0
		if ts != nil {
			depthBefore = ts.recursionDepth
		}
		_ = e.Schedule(ctx, func(ctx context.Context) {
			ts2 := threadStateFromContext(ctx)
			depthInner := -1
			if ts2 != nil {
				depthInner = ts2.recursionDepth
			}
			outerDone <- depthInner - depthBefore
		}, MayRecurse)
	}, 0))

	select {
	case delta := <-outerDone:
		// With recursionLimit=1, recursionDepth+1 < 1 is never true, so the
		// inner task must run on a different (or later) frame, not inline
		// one level deeper on the same call stack.
		assert.NotEqual(t, 1, delta)
	case <-time.After(time.Second):
		t.Fatal("inner task never ran")
	}
}
