package executor

import "container/list"

// timerKind selects which of a ThreadState's two interval timers an
// operation addresses.
type timerKind int

const (
	// Running is the timer accumulating wall time the worker spent inside
	// the reactor's run_* call, whether or not a task was executing.
	Running timerKind = iota
	// Executing is the timer accumulating wall time the worker spent
	// inside a user task.
	Executing
)

// ThreadState is the per-worker bookkeeping record. One instance is
// created when a worker is spawned and lives in the executor's thread
// list for exactly that worker's lifetime; a stable pointer to it is
// handed to the worker at entry so retirement can erase the list entry in
// O(1) without a search.
type ThreadState struct {
	running   *IntervalTimer
	executing *IntervalTimer

	// executingCurRun is ticks accumulated in executing during the
	// current reactor run-interval; zeroed at the top of every iteration
	// of the worker's main loop.
	executingCurRun int64

	// recursionDepth is the current nesting depth of user tasks on this
	// worker; zero when the worker is not inside a task.
	recursionDepth int

	// elem is this worker's stable handle into the executor's thread
	// list, letting retirement erase it in O(1) without a search.
	elem *list.Element
}

func newThreadState(source *TickSource) *ThreadState {
	return &ThreadState{
		running:   NewIntervalTimer(source),
		executing: NewIntervalTimer(source),
	}
}
