package executor

import (
	"container/list"
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	internalerrors "github.com/arihonda/adaptexec/internal/errors"
	"github.com/arihonda/adaptexec/pkg/retry"
	"github.com/arihonda/adaptexec/pkg/types"
)

// ScheduleFlags is a bitset controlling how Schedule admits a task.
type ScheduleFlags uint8

const (
	// MayRecurse permits the task to run inline on the admitting worker
	// (via the reactor's Dispatch entry point) if doing so would keep
	// recursion depth under the configured limit.
	MayRecurse ScheduleFlags = 1 << iota
	// DeferredTask routes the task's queued-count bookkeeping through
	// deferredTasksQueued instead of tasksQueued, and never wakes the
	// controller on admission.
	DeferredTask
)

// UserTask is the opaque callable work item an external caller hands to
// Schedule. It receives the context of whichever worker ultimately runs
// it, not the context of the caller that scheduled it.
type UserTask func(ctx context.Context)

// Launcher abstracts OS-thread creation (here, goroutine creation) behind
// an interface a test can make fail, so that the thread-launch-failure
// path in spec §7 is exercisable without actually exhausting OS
// resources. The default launcher never fails.
type Launcher func(run func()) error

func defaultLauncher(run func()) error {
	go run()
	return nil
}

// Executor is the adaptive worker-thread pool: the controller loop and
// worker lifecycle described by spec §§2-4, built on top of an externally
// supplied Reactor.
type Executor struct {
	reactor    Reactor
	config     *Config
	tickSource *TickSource
	clock      types.Clock
	launcher   Launcher
	admission  *admissionChain
	logger     *zerologAdapter

	// errorHandlers classifies executor-internal failures: a launch
	// failure that exhausts its retry budget is routed to the fail-fast
	// handler (surfaced to the caller of startWorkerThread), while a task
	// panic is routed to the continue-on-error handler (logged, the
	// worker is replaced, and the pool carries on).
	errorHandlers *internalerrors.HandlerRegistry

	metrics sharedMetrics

	threadsMu sync.Mutex
	threads   *list.List // of *ThreadState

	lastScheduleTimer *IntervalTimer
	scheduleCond      chan struct{}

	isRunning      atomic.Bool
	controllerDone chan struct{}

	randMu sync.Mutex
	rand   *rand.Rand
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithConfig overrides the default Config.
func WithConfig(cfg *Config) Option {
	return func(e *Executor) { e.config = cfg }
}

// WithLauncher overrides the goroutine-launch hook, chiefly for tests
// that need to exercise launch-failure handling.
func WithLauncher(l Launcher) Option {
	return func(e *Executor) { e.launcher = l }
}

// WithLogger sets the zerolog backend used for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) { e.logger = newLogger(l) }
}

// WithAdmissionHooks installs an ordered admission middleware chain run
// once per Schedule call, before the task reaches the reactor.
func WithAdmissionHooks(hooks ...AdmissionHook) Option {
	return func(e *Executor) { e.admission = newAdmissionChain(hooks...) }
}

// NewExecutor builds an Executor driven by reactor and clock. A nil clock
// uses the real wall clock.
func NewExecutor(reactor Reactor, clock types.Clock, opts ...Option) *Executor {
	if clock == nil {
		clock = types.NewRealClock()
	}
	source := NewTickSource(clock)
	handlers := newErrorHandlerRegistry()

	e := &Executor{
		reactor:           reactor,
		config:            DefaultConfig(),
		tickSource:        source,
		clock:             clock,
		launcher:          defaultLauncher,
		admission:         newAdmissionChain(),
		logger:            newLogger(zerolog.Nop()),
		errorHandlers:     handlers,
		threads:           list.New(),
		lastScheduleTimer: NewIntervalTimer(source),
		scheduleCond:      make(chan struct{}, 1),
		rand:              rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the controller and spawns ReservedThreads workers. It
// fails with ErrAlreadyRunning if the executor is already running.
func (e *Executor) Start() error {
	if !e.isRunning.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := e.config.Validate(); err != nil {
		e.isRunning.Store(false)
		return err
	}

	e.controllerDone = make(chan struct{})
	go e.controllerLoop()

	for i := 0; i < e.config.ReservedThreads(); i++ {
		if err := e.startWorkerThread(); err != nil {
			e.logger.Errorf("executor: start: failed to spawn reserved worker: %v", err)
		}
	}
	return nil
}

// Shutdown stops admitting new work, drains live workers, and stops the
// reactor. A second call returns success immediately regardless of the
// first call's outcome, satisfying shutdown's idempotence requirement.
func (e *Executor) Shutdown(timeout time.Duration) error {
	if !e.isRunning.CompareAndSwap(true, false) {
		return nil
	}

	e.notifyScheduleCondition()
	<-e.controllerDone
	e.reactor.Stop()

	deadline := e.clock.Now().Add(timeout)
	ticker := e.clock.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		e.threadsMu.Lock()
		empty := e.threads.Len() == 0
		e.threadsMu.Unlock()
		if empty {
			return nil
		}
		if !e.clock.Now().Before(deadline) {
			return ErrExceededTimeLimit
		}
		<-ticker.C()
	}
}

// Schedule admits one task, per spec §4.C.
func (e *Executor) Schedule(ctx context.Context, task UserTask, flags ScheduleFlags) error {
	scheduleTime := e.tickSource.Ticks()
	deferred := flags&DeferredTask != 0

	if deferred {
		e.metrics.deferredTasksQueued.Add(1)
	} else {
		e.metrics.tasksQueued.Add(1)
	}

	if !e.isRunning.Load() {
		// Counter increments are not rolled back here: spec §4.C step 3
		// treats this as acceptable, dwarfed by steady-state traffic.
		return ErrShutdownInProgress
	}

	admitted, err := e.admission.apply(ctx)
	if err != nil {
		if deferred {
			e.metrics.deferredTasksQueued.Add(-1)
		} else {
			e.metrics.tasksQueued.Add(-1)
		}
		return err
	}
	ctx = admitted

	wrapped := e.wrapTask(task, deferred, scheduleTime)

	callerState := threadStateFromContext(ctx)
	mayRecurse := flags&MayRecurse != 0
	if mayRecurse && callerState != nil && callerState.recursionDepth+1 < e.config.RecursionLimit() {
		e.reactor.Dispatch(ctx, wrapped)
	} else {
		e.reactor.Post(wrapped)
	}

	e.lastScheduleTimer.Reset()
	e.metrics.totalQueued.Add(1)

	if !deferred && e.isStarved() {
		e.notifyScheduleCondition()
	}
	return nil
}

// wrapTask builds the accounting wrapper described by spec §4.C step 4:
// queued-counter bookkeeping on entry, recursion-depth-gated
// threadsInUse/executing transitions around the user task, and a
// deferred release that runs on both normal and panicking exit.
func (e *Executor) wrapTask(task UserTask, deferred bool, scheduleTime int64) Task {
	return func(ctx context.Context) {
		now := e.tickSource.Ticks()
		if deferred {
			e.metrics.deferredTasksQueued.Add(-1)
		} else {
			e.metrics.tasksQueued.Add(-1)
		}
		e.metrics.totalSpentQueued.Add(now - scheduleTime)

		ts := threadStateFromContext(ctx)
		entering := ts != nil && ts.recursionDepth == 0
		if ts != nil {
			ts.recursionDepth++
			if entering {
				ts.executing.MarkRunning()
				e.metrics.threadsInUse.Add(1)
			}
		}
		defer func() {
			if ts != nil {
				ts.recursionDepth--
				if ts.recursionDepth == 0 {
					ts.executingCurRun += ts.executing.MarkStopped()
					e.metrics.threadsInUse.Add(-1)
				}
			}
			e.metrics.totalExecuted.Add(1)
		}()

		task(ctx)
	}
}

// isStarved implements spec §4.C's starvation predicate.
func (e *Executor) isStarved() bool {
	if e.metrics.threadsPending.Load() > 0 {
		return false
	}
	queued := e.metrics.tasksQueued.Load()
	if queued == 0 {
		return false
	}
	available := e.metrics.threadsRunning.Load() - e.metrics.threadsInUse.Load()
	return queued > available
}

func (e *Executor) notifyScheduleCondition() {
	select {
	case e.scheduleCond <- struct{}{}:
	default:
	}
}

// startWorkerThread appends a fresh ThreadState under threadsMu, bumps
// the pending/running counters, and launches the worker. Launch is
// wrapped in an exponential backoff retry (spec §9's open question,
// decided in favor of throttling chronic launch failures); on exhaustion
// the placeholder entry is erased and counters rolled back.
func (e *Executor) startWorkerThread() error {
	e.threadsMu.Lock()
	ts := newThreadState(e.tickSource)
	ts.elem = e.threads.PushBack(ts)
	e.threadsMu.Unlock()

	e.metrics.threadsPending.Add(1)
	e.metrics.threadsRunning.Add(1)

	policy := retry.NewExponentialBackoffRetry(5, 10*time.Millisecond)
	executor := retry.NewRetryExecutor(policy, retry.WithClock(e.clock))
	_, err := retry.ExecuteWithName(executor, context.Background(), "startWorkerThread",
		func(context.Context) (struct{}, error) {
			return struct{}{}, e.launcher(func() { e.workerRoutine(ts) })
		})
	if err != nil {
		e.threadsMu.Lock()
		e.threads.Remove(ts.elem)
		e.threadsMu.Unlock()
		e.metrics.threadsPending.Add(-1)
		e.metrics.threadsRunning.Add(-1)

		errCtx := internalerrors.NewErrorContext(err, "startWorkerThread", nil)
		errCtx.MaxRetries = 5
		handled := e.errorHandlers.GetHandlerForError(err).HandleError(context.Background(), errCtx)
		if handled != nil {
			e.logger.Errorf("executor: worker launch exhausted retries: %v", handled)
		}
		return err
	}
	return nil
}

// workerRoutine is the main loop described by spec §4.C's
// _workerThreadRoutine. It always retires through retireWorker, including
// on the panic-escape path, mirroring the C++ original's always-run exit
// guard.
func (e *Executor) workerRoutine(ts *ThreadState) {
	stillPending := true
	jitter := e.jitter()

	defer func() { e.retireWorker(ts, stillPending) }()

	for e.isRunning.Load() {
		retire, escaped, recovered := e.runOneInterval(ts, &stillPending, jitter)
		if escaped {
			e.handleTaskPanic(recovered)
			go func() {
				if err := e.startWorkerThread(); err != nil {
					e.logger.Errorf("executor: replacement worker failed to launch: %v", err)
				}
			}()
			return
		}
		if retire {
			e.logger.Debugf("executor: worker retiring, utilization below idle threshold")
			return
		}
	}
}

// runOneInterval runs one reactor run-interval and decides whether this
// worker should retire afterward. A panic escaping the user task (via the
// reactor call) is recovered here rather than in the reactor itself, so
// that only this worker's interval is affected.
func (e *Executor) runOneInterval(ts *ThreadState, stillPending *bool, jitter time.Duration) (retire, escaped bool, recovered interface{}) {
	defer func() {
		if r := recover(); r != nil {
			escaped = true
			recovered = r
		}
	}()

	runTime := e.config.WorkerThreadRunTime() + jitter
	if runTime <= 0 {
		runTime = e.config.WorkerThreadRunTime()
	}
	ts.executingCurRun = 0
	ctx := withThreadState(context.Background(), ts)

	ts.running.MarkRunning()
	if *stillPending {
		_ = e.reactor.RunOneFor(ctx, runTime)
	} else {
		_ = e.reactor.RunFor(ctx, runTime)
	}
	if e.reactor.Stopped() {
		e.reactor.Restart()
	}
	spentRunning := ts.running.MarkStopped()

	if *stillPending {
		e.metrics.threadsPending.Add(-1)
		*stillPending = false
		return false, false, nil
	}

	if e.metrics.threadsRunning.Load() > int64(e.config.ReservedThreads()) {
		var pctExecuting int64
		if spentRunning > 0 {
			pctExecuting = 100 * ts.executingCurRun / spentRunning
		}
		if pctExecuting < e.config.IdlePctThreshold() {
			retire = true
		}
	}
	return retire, false, nil
}

// newErrorHandlerRegistry builds the registry classifying executor-internal
// failures, with taskPanicError bound to a continue-on-error handler. The
// registry's default ContinueOnError instance logs ignored errors via a raw
// fmt.Printf; that would bypass the zerolog adapter entirely for every task
// panic, so it is swapped here for one built with LogErrors: false, leaving
// handleTaskPanic's e.logger.Errorf call as the only diagnostic sink.
func newErrorHandlerRegistry() *internalerrors.HandlerRegistry {
	registry := internalerrors.NewHandlerRegistry()
	_ = registry.UnregisterHandler("ContinueOnError")
	_ = registry.RegisterHandler(internalerrors.NewContinueOnErrorHandler(&internalerrors.ContinueOnErrorConfig{
		LogErrors: false,
	}))
	_ = registry.BindErrorTypeToHandler(&taskPanicError{}, "ContinueOnError")
	return registry
}

// handleTaskPanic routes a recovered task panic through the
// continue-on-error handler bound to taskPanicError, logging whatever the
// handler chooses to surface (normally nil, since the pool is meant to
// carry on past individual task failures).
func (e *Executor) handleTaskPanic(recovered interface{}) {
	err := &taskPanicError{recovered: recovered}
	errCtx := internalerrors.NewErrorContext(err, "workerRoutine", nil)
	if handled := e.errorHandlers.GetHandlerForError(err).HandleError(context.Background(), errCtx); handled != nil {
		e.logger.Errorf("executor: unhandled task panic: %v", handled)
	} else {
		e.logger.Errorf("executor: task panic escaped worker thread, spawning replacement: %v", recovered)
	}
}

// retireWorker folds ts's lifetime timers into the pool-wide
// past-accumulators before erasing its list entry, preserving invariant
// 5 (getThreadTimerTotal must never observe a transient decrease).
func (e *Executor) retireWorker(ts *ThreadState, stillPending bool) {
	if stillPending {
		e.metrics.threadsPending.Add(-1)
	}
	e.metrics.threadsRunning.Add(-1)
	e.metrics.pastThreadsSpentRunning.Add(ts.running.TotalTime())
	e.metrics.pastThreadsSpentExecuting.Add(ts.executing.TotalTime())

	e.threadsMu.Lock()
	if ts.elem != nil {
		e.threads.Remove(ts.elem)
	}
	e.threadsMu.Unlock()
}

// getThreadTimerTotal sums the pool-wide past-accumulator with a locked
// pass over the live thread list, per spec §4.D.
func (e *Executor) getThreadTimerTotal(which timerKind) int64 {
	var total int64
	switch which {
	case Running:
		total = e.metrics.pastThreadsSpentRunning.Load()
	case Executing:
		total = e.metrics.pastThreadsSpentExecuting.Load()
	}

	e.threadsMu.Lock()
	for el := e.threads.Front(); el != nil; el = el.Next() {
		ts := el.Value.(*ThreadState)
		switch which {
		case Running:
			total += ts.running.TotalTime()
		case Executing:
			total += ts.executing.TotalTime()
		}
	}
	e.threadsMu.Unlock()
	return total
}

// jitter draws a uniform value in [-runTimeJitter, +runTimeJitter] and
// normalizes it to 0 if its magnitude exceeds the configured run time
// (SPEC_FULL E.4.5).
func (e *Executor) jitter() time.Duration {
	band := e.config.RunTimeJitter()
	if band <= 0 {
		return 0
	}

	e.randMu.Lock()
	n := e.rand.Int63n(2*int64(band)+1) - int64(band)
	e.randMu.Unlock()

	j := time.Duration(n)
	if rt := e.config.WorkerThreadRunTime(); j > rt || j < -rt {
		j = 0
	}
	return j
}

// Stats returns a snapshot of the process-wide metrics in the shape spec
// §6 names for appendStats.
func (e *Executor) Stats() Stats {
	return Stats{
		Executor:                 "adaptive",
		TotalQueued:              e.metrics.totalQueued.Load(),
		TotalExecuted:            e.metrics.totalExecuted.Load(),
		TasksQueued:              e.metrics.tasksQueued.Load(),
		DeferredTasksQueued:      e.metrics.deferredTasksQueued.Load(),
		ThreadsInUse:             e.metrics.threadsInUse.Load(),
		TotalTimeRunningMicros:   ticksToMicros(e.getThreadTimerTotal(Running)),
		TotalTimeExecutingMicros: ticksToMicros(e.getThreadTimerTotal(Executing)),
		TotalTimeQueuedMicros:    ticksToMicros(e.metrics.totalSpentQueued.Load()),
		ThreadsRunning:           e.metrics.threadsRunning.Load(),
		ThreadsPending:           e.metrics.threadsPending.Load(),
	}
}

// Config returns the executor's configuration, for runtime tuning.
func (e *Executor) Config() *Config {
	return e.config
}
