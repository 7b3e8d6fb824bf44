package testutils

import (
	"testing"

	"github.com/arihonda/adaptexec/pkg/executor"
)

// NewMockReactor builds an executor.Reactor backed by a quartz mock clock,
// giving tests a controllable reactor and tick source together: advancing
// the mock clock drives both the reactor's run-interval timers and
// whatever TickSource an Executor built on the same clock uses.
func NewMockReactor(t testing.TB) (executor.Reactor, *ClockWrapper) {
	mock := NewMockClock(t)
	clock := NewClockWrapper(mock)
	return executor.NewReactor(clock), clock
}
