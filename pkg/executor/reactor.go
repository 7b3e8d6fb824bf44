package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arihonda/adaptexec/pkg/types"
)

// Task is a unit of work admitted into a Reactor. The context passed at
// invocation time is the executing worker's own context — carrying that
// worker's ThreadState and the "currently inside run_*" marker — not the
// context of whoever scheduled the task.
type Task func(ctx context.Context)

// Reactor is the external asynchronous I/O engine this executor dispatches
// onto. It is consumed, not implemented, by the control loop proper: spec
// §1 scopes it as an external collaborator with only its interface
// specified. The one concrete implementation in this file exists so the
// package is self-contained and testable; production callers may supply
// any other type satisfying this interface.
type Reactor interface {
	// Post enqueues task for later execution on some worker; it never
	// runs task inline on the calling goroutine.
	Post(task Task)

	// Dispatch enqueues task, or runs it inline on the calling goroutine
	// if ctx indicates that goroutine is currently inside a run_* call.
	Dispatch(ctx context.Context, task Task)

	// RunOneFor executes at most one handler, returning within d.
	RunOneFor(ctx context.Context, d time.Duration) error

	// RunFor executes handlers until d elapses or Stop is called; while
	// idle it keeps waiting for new handlers rather than returning early.
	RunFor(ctx context.Context, d time.Duration) error

	// Stop unblocks any in-flight RunFor/RunOneFor calls and causes
	// future ones to return immediately without running anything.
	Stop()

	// Restart clears the effect of Stop so the reactor is usable again.
	Restart()

	// Stopped reports whether Stop has been called without a subsequent
	// Restart.
	Stopped() bool
}

// reactorImpl is a clock-parameterized Reactor: the same implementation
// runs over types.NewRealClock (production use and this package's tests)
// or over a quartz-backed mock clock (internal/testutils.NewMockReactor),
// grounded on
// Swind-go-task-runner's TaskScheduler.GetWork — a mutex-guarded FIFO
// queue paired with a buffered signal channel so posting never blocks on
// a dequeuing worker.
type reactorImpl struct {
	clock types.Clock

	mu     sync.Mutex
	queue  []Task
	stopCh chan struct{}

	signal  chan struct{}
	stopped atomic.Bool
}

// NewReactor creates a Reactor driven by clock. A nil clock uses the real
// wall clock.
func NewReactor(clock types.Clock) Reactor {
	if clock == nil {
		clock = types.NewRealClock()
	}
	return &reactorImpl{
		clock:  clock,
		signal: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

func (r *reactorImpl) Post(task Task) {
	r.mu.Lock()
	r.queue = append(r.queue, task)
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *reactorImpl) Dispatch(ctx context.Context, task Task) {
	if isRunningInReactor(ctx) {
		task(ctx)
		return
	}
	r.Post(task)
}

func (r *reactorImpl) pop() (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return nil, false
	}
	task := r.queue[0]
	r.queue = r.queue[1:]
	return task, true
}

func (r *reactorImpl) currentStopCh() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopCh
}

func (r *reactorImpl) RunOneFor(ctx context.Context, d time.Duration) error {
	if r.Stopped() {
		return nil
	}
	ctx = withRunning(ctx)
	timer := r.clock.NewTimer(d)
	defer timer.Stop()
	stopCh := r.currentStopCh()

	for {
		if task, ok := r.pop(); ok {
			task(ctx)
			return nil
		}
		select {
		case <-r.signal:
			continue
		case <-timer.C():
			return nil
		case <-stopCh:
			return nil
		}
	}
}

func (r *reactorImpl) RunFor(ctx context.Context, d time.Duration) error {
	if r.Stopped() {
		return nil
	}
	ctx = withRunning(ctx)
	timer := r.clock.NewTimer(d)
	defer timer.Stop()
	stopCh := r.currentStopCh()

	for {
		if task, ok := r.pop(); ok {
			task(ctx)
			continue
		}
		select {
		case <-r.signal:
			continue
		case <-timer.C():
			return nil
		case <-stopCh:
			return nil
		}
	}
}

func (r *reactorImpl) Stop() {
	if r.stopped.CompareAndSwap(false, true) {
		r.mu.Lock()
		close(r.stopCh)
		r.mu.Unlock()
	}
}

func (r *reactorImpl) Restart() {
	r.mu.Lock()
	r.stopCh = make(chan struct{})
	r.mu.Unlock()
	r.stopped.Store(false)
}

func (r *reactorImpl) Stopped() bool {
	return r.stopped.Load()
}
