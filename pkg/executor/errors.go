package executor

import (
	"errors"
	"fmt"
)

// Errors surfaced to callers of Schedule and Shutdown.
var (
	// ErrShutdownInProgress is returned by Schedule once the executor has
	// begun (or finished) shutting down.
	ErrShutdownInProgress = errors.New("executor: shutdown in progress")

	// ErrExceededTimeLimit is returned by Shutdown when the configured
	// timeout elapses while workers are still draining.
	ErrExceededTimeLimit = errors.New("executor: shutdown exceeded time limit")

	// ErrAlreadyRunning is returned by Start when the executor is already
	// running.
	ErrAlreadyRunning = errors.New("executor: already running")
)

// taskPanicError wraps a value recovered from a user task's panic so the
// error-handler registry can route it to a distinct handler (continue and
// replace the worker) from an ordinary launch failure (fail fast).
type taskPanicError struct {
	recovered interface{}
}

func (e *taskPanicError) Error() string {
	return fmt.Sprintf("executor: task panic: %v", e.recovered)
}
