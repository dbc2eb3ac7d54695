// Package loopbridge exposes task receivers as event loop promises, for code
// that runs on a [eventloop.Loop] and must not block.
package loopbridge

import (
	"github.com/joeycumines/go-affinity/task"
	"github.com/joeycumines/go-eventloop"
)

// Promise returns a promise that settles on loop once r resolves. It is
// fulfilled with the value, or rejected with the error, including
// [task.ErrChannelClosed].
//
// A goroutine waits on r until it resolves, which it always eventually does.
func Promise[T any](loop *eventloop.Loop, js *eventloop.JS, r *task.Receiver[T]) *eventloop.ChainedPromise {
	p, resolve, reject := js.NewChainedPromise()
	go func() {
		value, err := r.Wait()
		settle := func() {
			if err != nil {
				reject(err)
			} else {
				resolve(value)
			}
		}
		if loop.Submit(settle) != nil {
			// the loop is gone, settle anyway so channel waiters are released
			settle()
		}
	}()
	return p
}
