package executor

import "sync/atomic"

// sharedMetrics holds the process-wide atomic counters from spec §3/§4.B.
// Every field is modified via relaxed fetch-add/sub; nothing here
// participates in a correctness-critical ordering, only in heuristic
// decisions and diagnostics.
type sharedMetrics struct {
	threadsRunning atomic.Int64
	threadsInUse   atomic.Int64
	threadsPending atomic.Int64

	tasksQueued         atomic.Int64
	deferredTasksQueued atomic.Int64

	totalQueued   atomic.Int64
	totalExecuted atomic.Int64

	totalSpentQueued atomic.Int64

	// pastThreadsSpentRunning/Executing accumulate the lifetime ticks of
	// workers that have already retired, per spec invariant 5: a worker
	// folds its timers in here before its ThreadState is removed from
	// the live list, which keeps getThreadTimerTotal monotonic.
	pastThreadsSpentRunning   atomic.Int64
	pastThreadsSpentExecuting atomic.Int64
}

// Stats is the plain snapshot returned by Executor.Stats, mirroring the
// appendStats sub-document named in spec §6 field-for-field. Time fields
// are already converted to microseconds.
type Stats struct {
	Executor                 string `json:"executor"`
	TotalQueued              int64  `json:"totalQueued"`
	TotalExecuted            int64  `json:"totalExecuted"`
	TasksQueued              int64  `json:"tasksQueued"`
	DeferredTasksQueued      int64  `json:"deferredTasksQueued"`
	ThreadsInUse             int64  `json:"threadsInUse"`
	TotalTimeRunningMicros   int64  `json:"totalTimeRunningMicros"`
	TotalTimeExecutingMicros int64  `json:"totalTimeExecutingMicros"`
	TotalTimeQueuedMicros    int64  `json:"totalTimeQueuedMicros"`
	ThreadsRunning           int64  `json:"threadsRunning"`
	ThreadsPending           int64  `json:"threadsPending"`
}

// statsSinkName is the sub-document name spec §6 assigns to this
// executor's stats, carried over from the MongoDB original's
// "serviceExecutorTaskStats".
const statsSinkName = "serviceExecutorTaskStats"
