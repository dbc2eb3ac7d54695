package affinity

import (
	"errors"
	"fmt"
)

var (
	// ErrDispatchFailed indicates a directive could not be enqueued, because
	// a queue was full, or the executor has terminated. It is never retried.
	ErrDispatchFailed = errors.New(`affinity: dispatch failed`)

	// ErrExecutorTerminated indicates the executor has stopped, and will not
	// accept further directives.
	ErrExecutorTerminated = errors.New(`affinity: executor terminated`)

	// ErrUnknownSession is matched by [*UnknownSessionError].
	ErrUnknownSession = errors.New(`affinity: unknown session`)

	// ErrUnknownResource indicates an operation targeted a handle that is not
	// owned by the session.
	ErrUnknownResource = errors.New(`affinity: unknown resource`)

	// ErrReentrantShutdown is returned by [Executor.Shutdown] when called from
	// the affinity thread, or from an event handler.
	ErrReentrantShutdown = errors.New(`affinity: shutdown called from the affinity thread`)

	// ErrRelayState is the panic value raised when the relay receives a
	// message that is invalid in its current state.
	ErrRelayState = errors.New(`affinity: invalid relay state`)
)

var (
	errQueueFull  = fmt.Errorf(`%w: queue full`, ErrDispatchFailed)
	errTerminated = fmt.Errorf(`%w: %w`, ErrDispatchFailed, ErrExecutorTerminated)
)

// UnknownSessionError is the fatal condition raised when a directive targets
// a session id that was never registered.
type UnknownSessionError struct {
	ID uint64
}

func (e *UnknownSessionError) Error() string {
	return fmt.Sprintf(`affinity: unknown session %d`, e.ID)
}

func (e *UnknownSessionError) Is(target error) bool { return target == ErrUnknownSession }

// PanicError wraps a value recovered from a panicking [Offload] work
// function.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf(`affinity: offload panicked: %v`, e.Value)
}

// Unwrap returns Value, if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
