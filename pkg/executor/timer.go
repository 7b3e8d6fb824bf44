package executor

import "sync/atomic"

// IntervalTimer accumulates wall-clock ticks between markRunning/markStopped
// pairs, and separately supports the non-accumulating sinceStart/reset use
// made by the controller's round timer. Start/stop is only ever called by
// the owning worker and is not itself safe for concurrent use, but
// TotalTime is read concurrently by the controller and is only ever
// updated atomically at MarkStopped, so readers see the last-committed
// value and tolerate skew of up to one run-interval.
type IntervalTimer struct {
	source *TickSource

	running   int64 // ticks at the last MarkRunning/Reset call
	total     atomic.Int64
	startedAt atomic.Int64 // 0 when not currently running
}

// NewIntervalTimer creates a timer bound to source, initialized as if
// reset at the current tick.
func NewIntervalTimer(source *TickSource) *IntervalTimer {
	t := &IntervalTimer{source: source}
	t.running = source.Ticks()
	return t
}

// MarkRunning records the start of an accumulation interval.
func (t *IntervalTimer) MarkRunning() {
	t.running = t.source.Ticks()
	t.startedAt.Store(t.running)
}

// MarkStopped ends the current accumulation interval, adds its length to
// the running total, and returns the length of that interval in ticks.
func (t *IntervalTimer) MarkStopped() int64 {
	now := t.source.Ticks()
	elapsed := now - t.running
	if elapsed < 0 {
		elapsed = 0
	}
	t.total.Add(elapsed)
	t.startedAt.Store(0)
	return elapsed
}

// TotalTime returns the accumulated ticks committed by MarkStopped calls
// so far. Safe to call from any goroutine.
func (t *IntervalTimer) TotalTime() int64 {
	return t.total.Load()
}

// Reset restarts the non-accumulating "since" baseline used by
// sinceLastControlRound-style timers.
func (t *IntervalTimer) Reset() {
	t.running = t.source.Ticks()
}

// SinceStart returns wall ticks elapsed since the last Reset (or since
// creation, if Reset was never called).
func (t *IntervalTimer) SinceStart() int64 {
	return t.source.Ticks() - t.running
}
