// Package executor implements an adaptive worker-thread pool for a network
// service: tasks are admitted onto a shared reactor and a single controller
// goroutine grows or shrinks the live worker set to match offered load.
//
// The four cooperating pieces are, leaves first: a tick-based clock and
// interval-timer pair (ticksource.go, timer.go), process-wide atomic metrics
// (metrics.go), the worker pool and task-admission path (pool.go), and the
// controller loop that resizes the pool (controller.go). The reactor is
// consumed through the Reactor interface in reactor.go; that file also
// carries NewReactor, a clock-parameterized reference implementation that
// this package's own tests run over the real clock. Callers may supply any
// other Reactor implementation.
package executor
