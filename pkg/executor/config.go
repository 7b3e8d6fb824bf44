package executor

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the seven runtime-mutable knobs from spec §6. Every knob
// is stored in an atomic so the controller, workers, and any external
// tuning code can read and update them without a lock; the one-time
// auto-computation of reservedThreads is guarded by a sync.Once.
type Config struct {
	reservedThreads     atomic.Int64 // -1 sentinel means "not yet computed"
	workerThreadRunTime atomic.Int64 // milliseconds
	runTimeJitter       atomic.Int64 // milliseconds
	stuckThreadTimeout  atomic.Int64 // milliseconds
	maxQueueLatency     atomic.Int64 // microseconds
	idlePctThreshold    atomic.Int64 // percent, 0-100
	recursionLimit      atomic.Int64 // count

	reservedOnce sync.Once
}

// DefaultConfig returns a Config populated with spec §6's defaults.
func DefaultConfig() *Config {
	c := &Config{}
	c.reservedThreads.Store(-1)
	c.workerThreadRunTime.Store(5000)
	c.runTimeJitter.Store(500)
	c.stuckThreadTimeout.Store(250)
	c.maxQueueLatency.Store(500)
	c.idlePctThreshold.Store(60)
	c.recursionLimit.Store(8)
	return c
}

// Validate checks the non-auto-computed knobs for obviously broken
// values, the same precondition-assertion spirit as spec §7's "negative
// run-time, zero ticks-per-second trip precondition assertions".
func (c *Config) Validate() error {
	if c.workerThreadRunTime.Load() <= 0 {
		return fmt.Errorf("executor: workerThreadRunTime must be positive")
	}
	if c.runTimeJitter.Load() < 0 {
		return fmt.Errorf("executor: runTimeJitter must be non-negative")
	}
	if c.stuckThreadTimeout.Load() <= 0 {
		return fmt.Errorf("executor: stuckThreadTimeout must be positive")
	}
	if c.maxQueueLatency.Load() < 0 {
		return fmt.Errorf("executor: maxQueueLatency must be non-negative")
	}
	if p := c.idlePctThreshold.Load(); p < 0 || p > 100 {
		return fmt.Errorf("executor: idlePctThreshold must be in [0,100]")
	}
	if c.recursionLimit.Load() < 1 {
		return fmt.Errorf("executor: recursionLimit must be at least 1")
	}
	r := c.reservedThreads.Load()
	if r != -1 && r < 0 {
		return fmt.Errorf("executor: reservedThreads must be -1 or non-negative")
	}
	return nil
}

// ReservedThreads returns the configured minimum live worker count,
// computing and storing the auto value (max(2, cores/2)) on first read if
// the knob is still at its -1 sentinel.
func (c *Config) ReservedThreads() int {
	c.reservedOnce.Do(func() {
		if c.reservedThreads.Load() == -1 {
			auto := runtime.NumCPU() / 2
			if auto < 2 {
				auto = 2
			}
			c.reservedThreads.Store(int64(auto))
		}
	})
	return int(c.reservedThreads.Load())
}

// SetReservedThreads overrides the reserved worker count. Passing -1
// requests the auto-compute behavior on the next ReservedThreads call;
// since the auto-compute itself is one-shot, callers that want to force a
// recompute should construct a fresh Config.
func (c *Config) SetReservedThreads(n int) {
	c.reservedThreads.Store(int64(n))
}

// WorkerThreadRunTime returns the per-interval reactor dwell time.
func (c *Config) WorkerThreadRunTime() time.Duration {
	return time.Duration(c.workerThreadRunTime.Load()) * time.Millisecond
}

// SetWorkerThreadRunTime sets the per-interval reactor dwell time.
func (c *Config) SetWorkerThreadRunTime(d time.Duration) {
	c.workerThreadRunTime.Store(d.Milliseconds())
}

// RunTimeJitter returns the half-width of the per-worker jitter band.
func (c *Config) RunTimeJitter() time.Duration {
	return time.Duration(c.runTimeJitter.Load()) * time.Millisecond
}

// SetRunTimeJitter sets the half-width of the per-worker jitter band.
func (c *Config) SetRunTimeJitter(d time.Duration) {
	c.runTimeJitter.Store(d.Milliseconds())
}

// StuckThreadTimeout returns the controller wake cap and stuck-detection
// threshold.
func (c *Config) StuckThreadTimeout() time.Duration {
	return time.Duration(c.stuckThreadTimeout.Load()) * time.Millisecond
}

// SetStuckThreadTimeout sets the controller wake cap and stuck-detection
// threshold.
func (c *Config) SetStuckThreadTimeout(d time.Duration) {
	c.stuckThreadTimeout.Store(d.Milliseconds())
}

// MaxQueueLatency returns the spin delay used while awaiting
// pending-worker warmup.
func (c *Config) MaxQueueLatency() time.Duration {
	return time.Duration(c.maxQueueLatency.Load()) * time.Microsecond
}

// SetMaxQueueLatency sets the spin delay used while awaiting
// pending-worker warmup.
func (c *Config) SetMaxQueueLatency(d time.Duration) {
	c.maxQueueLatency.Store(d.Microseconds())
}

// IdlePctThreshold returns the utilization floor (0-100).
func (c *Config) IdlePctThreshold() int64 {
	return c.idlePctThreshold.Load()
}

// SetIdlePctThreshold sets the utilization floor (0-100).
func (c *Config) SetIdlePctThreshold(pct int64) {
	c.idlePctThreshold.Store(pct)
}

// RecursionLimit returns the strict upper bound on inline-dispatch
// recursion.
func (c *Config) RecursionLimit() int {
	return int(c.recursionLimit.Load())
}

// SetRecursionLimit sets the strict upper bound on inline-dispatch
// recursion.
func (c *Config) SetRecursionLimit(n int) {
	c.recursionLimit.Store(int64(n))
}
