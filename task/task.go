// Package task implements a one-shot request/response pairing, used to hand
// a request to another goroutine and receive exactly one result back.
//
// A pair is created with [New]. The [Sender] travels with the request, and is
// completed exactly once by whoever performs it. The [Receiver] stays with the
// originator, and resolves either with the delivered result, or with
// [ErrChannelClosed], if the Sender was dropped without completing.
//
// There is no cancellation. Abandoning a wait (see [Receiver.Await]) never
// retracts the request.
package task

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync/atomic"
)

var (
	// ErrChannelClosed is returned by a [Receiver] whose [Sender] was dropped
	// without being completed.
	ErrChannelClosed = errors.New("task: channel closed")

	// ErrDoubleCompletion is the panic value raised when a [Sender] is
	// completed more than once, or completed after being dropped.
	ErrDoubleCompletion = errors.New("task: sender completed twice")
)

// TypeMismatchError is the panic value raised when a [Sender] is completed
// with a value that the paired [Receiver] cannot hold.
type TypeMismatchError struct {
	Want reflect.Type
	Got  reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("task: completion value of type %v is not assignable to %v", e.Got, e.Want)
}

const (
	statePending uint32 = iota
	stateCompleted
	stateDropped
)

// shared is the rendezvous between a Sender and its Receiver. The result
// fields are written once, before done is closed.
type shared struct {
	state  atomic.Uint32
	done   chan struct{}
	value  any
	err    error
	closed bool
}

func (s *shared) drop() bool {
	if !s.state.CompareAndSwap(statePending, stateDropped) {
		return false
	}
	s.closed = true
	close(s.done)
	return true
}

// Sender is the producing half of a pair. It carries the request input, and
// is consumed by [Sender.Complete] or [Sender.Drop].
//
// A Sender that becomes unreachable while still pending is dropped
// automatically, so a leaked Sender surfaces as [ErrChannelClosed] rather than
// a hung Receiver.
type Sender[D any] struct {
	input   D
	shared  *shared
	check   func(v any) bool
	want    reflect.Type
	cleanup runtime.Cleanup
}

// Receiver is the consuming half of a pair.
type Receiver[T any] struct {
	shared *shared
}

// New creates a pair. T is the result type delivered to the Receiver, and D
// is the request input carried by the Sender.
func New[T, D any](input D) (*Receiver[T], *Sender[D]) {
	s := &shared{done: make(chan struct{})}
	sender := &Sender[D]{
		input:  input,
		shared: s,
		check: func(v any) bool {
			_, ok := v.(T)
			return ok
		},
		want: reflect.TypeFor[T](),
	}
	sender.cleanup = runtime.AddCleanup(sender, func(s *shared) { s.drop() }, s)
	return &Receiver[T]{shared: s}, sender
}

// Resolved returns a Receiver that has already resolved with the given
// result.
func Resolved[T any](value T, err error) *Receiver[T] {
	s := &shared{done: make(chan struct{}), value: value, err: err}
	s.state.Store(stateCompleted)
	close(s.done)
	return &Receiver[T]{shared: s}
}

// Input returns the request carried by the Sender.
func (x *Sender[D]) Input() D { return x.input }

// Done reports whether the Sender has been completed or dropped.
func (x *Sender[D]) Done() bool { return x.shared.state.Load() != statePending }

// Complete delivers the result to the paired Receiver. A nil value resolves
// as the zero value of the Receiver's type. Panics with [ErrDoubleCompletion]
// if the Sender was already completed or dropped, or with a
// [*TypeMismatchError] if value has the wrong type.
func (x *Sender[D]) Complete(value any, err error) {
	if value != nil && !x.check(value) {
		panic(&TypeMismatchError{Want: x.want, Got: reflect.TypeOf(value)})
	}
	s := x.shared
	if !s.state.CompareAndSwap(statePending, stateCompleted) {
		panic(ErrDoubleCompletion)
	}
	x.cleanup.Stop()
	s.value = value
	s.err = err
	close(s.done)
}

// Drop releases the Sender without completing it, resolving the Receiver
// with [ErrChannelClosed]. It is a no-op if the Sender is already done.
func (x *Sender[D]) Drop() {
	if x.shared.drop() {
		x.cleanup.Stop()
	}
}

// Done returns a channel that is closed once the Receiver has resolved.
func (x *Receiver[T]) Done() <-chan struct{} { return x.shared.done }

// Wait blocks until the Receiver resolves. Failures of the requested
// operation are returned as-is; a dropped Sender returns [ErrChannelClosed].
func (x *Receiver[T]) Wait() (T, error) {
	<-x.shared.done
	return x.result()
}

// Await is like [Receiver.Wait], but gives up when ctx is done, returning
// ctx.Err(). Giving up does not cancel the request, which will still run, and
// a later call may still observe its result.
func (x *Receiver[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-x.shared.done:
		return x.result()
	default:
	}
	select {
	case <-x.shared.done:
		return x.result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Poll returns the result if the Receiver has resolved, with ok false
// otherwise.
func (x *Receiver[T]) Poll() (value T, ok bool, err error) {
	select {
	case <-x.shared.done:
		value, err = x.result()
		return value, true, err
	default:
		return value, false, nil
	}
}

func (x *Receiver[T]) result() (value T, err error) {
	s := x.shared
	if s.closed {
		return value, ErrChannelClosed
	}
	if s.value != nil {
		value = s.value.(T)
	}
	return value, s.err
}
