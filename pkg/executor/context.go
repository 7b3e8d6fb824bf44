package executor

import "context"

// Per spec §9's own note: "explicit context passing through the reactor
// handler wrapper" stands in for the thread-local ThreadState pointer and
// the in-reactor-run flag that the original uses. Both are carried as
// context values: the ThreadState is attached by the worker routine
// (runOneInterval) before each reactor run, the running marker by the
// reactor's RunFor/RunOneFor; Schedule/Dispatch read them to decide
// whether inline recursion is legal.

type threadStateKey struct{}
type runningKey struct{}

// withThreadState attaches a worker's ThreadState handle to ctx.
func withThreadState(ctx context.Context, ts *ThreadState) context.Context {
	return context.WithValue(ctx, threadStateKey{}, ts)
}

// threadStateFromContext returns the calling worker's ThreadState, or nil
// if ctx was not produced by a worker (e.g. an external caller invoking
// Schedule directly).
func threadStateFromContext(ctx context.Context) *ThreadState {
	ts, _ := ctx.Value(threadStateKey{}).(*ThreadState)
	return ts
}

// withRunning marks ctx as currently executing inside the reactor's run_*
// call, which is what makes Dispatch eligible to run a task inline.
func withRunning(ctx context.Context) context.Context {
	return context.WithValue(ctx, runningKey{}, true)
}

// isRunningInReactor reports whether ctx was derived from withRunning.
func isRunningInReactor(ctx context.Context) bool {
	v, _ := ctx.Value(runningKey{}).(bool)
	return v
}
