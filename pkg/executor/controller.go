package executor

import "time"

// controllerRoundState carries the values the controller must remember
// across iterations: the round timer (spec's sinceLastControlRound) and
// the running/executing snapshots utilizationPct is computed against.
type controllerRoundState struct {
	timer              *IntervalTimer
	lastSpentExecuting int64
	lastSpentRunning   int64
}

// controllerLoop is the single supervisory goroutine from spec §4.D. It
// runs until Shutdown flips isRunning false and wakes it.
func (e *Executor) controllerLoop() {
	defer close(e.controllerDone)

	round := &controllerRoundState{timer: NewIntervalTimer(e.tickSource)}

	for {
		timedOut := e.waitScheduleCondition(e.config.StuckThreadTimeout())
		if !e.isRunning.Load() {
			return
		}
		e.controllerRound(round, timedOut)
	}
}

// waitScheduleCondition blocks on the schedule-condition channel (a pure
// wakeup signal, not a state guard — per spec §4.D's "dummy mutex" note,
// the real state lives in the atomic counters, not in anything this
// channel protects) until either a signal arrives or timeout elapses.
// Returns true if the wait timed out.
func (e *Executor) waitScheduleCondition(timeout time.Duration) bool {
	timer := e.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.scheduleCond:
		return false
	case <-timer.C():
		return true
	}
}

// controllerRound runs one iteration of spec §4.D's decision procedure.
// The deferred round.timer.Reset() mirrors the C++ original's MakeGuard:
// every exit path — the stuck branch's early return included — rearms
// the round timer before the next wait.
func (e *Executor) controllerRound(round *controllerRoundState, timedOut bool) {
	defer round.timer.Reset()

	spentExecuting := e.getThreadTimerTotal(Executing)
	spentRunning := e.getThreadTimerTotal(Running)
	diffExecuting := spentExecuting - round.lastSpentExecuting
	diffRunning := spentRunning - round.lastSpentRunning

	var utilizationPct int64
	if spentRunning != 0 && diffRunning != 0 {
		utilizationPct = 100 * diffExecuting / diffRunning
		round.lastSpentExecuting = spentExecuting
		round.lastSpentRunning = spentRunning
	}

	if timedOut && round.timer.SinceStart() >= int64(e.config.StuckThreadTimeout()) {
		allBusy := e.metrics.threadsInUse.Load() == e.metrics.threadsRunning.Load()
		noRecentAdmission := e.lastScheduleTimer.SinceStart() >= int64(e.config.StuckThreadTimeout())
		if allBusy && noRecentAdmission {
			e.logger.Warnf("executor: detected blocked worker threads, spawning %d replacement workers",
				e.config.ReservedThreads())
			e.spawnUpTo(e.config.ReservedThreads())
		}
		return
	}

	e.replenishReserve()

	if utilizationPct < e.config.IdlePctThreshold() {
		return
	}

	for e.metrics.threadsPending.Load() > 0 && round.timer.SinceStart() < int64(e.config.StuckThreadTimeout()) {
		e.clock.Sleep(e.config.MaxQueueLatency())
	}

	if e.isStarved() {
		e.logger.Infof("executor: starved, starting one additional worker")
		if err := e.startWorkerThread(); err != nil {
			e.logger.Errorf("executor: failed to spawn additional worker: %v", err)
		}
	}
}

// replenishReserve spawns workers up to ReservedThreads, per spec §4.D
// step 4.
func (e *Executor) replenishReserve() {
	if missing := int64(e.config.ReservedThreads()) - e.metrics.threadsRunning.Load(); missing > 0 {
		e.logger.Infof("executor: starting %d to replenish reserved worker threads", missing)
	}
	for e.metrics.threadsRunning.Load() < int64(e.config.ReservedThreads()) {
		if err := e.startWorkerThread(); err != nil {
			e.logger.Errorf("executor: failed to spawn reserved worker: %v", err)
			return
		}
	}
}

// spawnUpTo launches n additional workers, tolerating individual launch
// failures (each is retried internally by startWorkerThread already).
func (e *Executor) spawnUpTo(n int) {
	for i := 0; i < n; i++ {
		if err := e.startWorkerThread(); err != nil {
			e.logger.Errorf("executor: failed to spawn replacement worker: %v", err)
		}
	}
}
