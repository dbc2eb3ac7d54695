package affinity

import (
	"sync/atomic"

	"code.hybscloud.com/iox"
)

// drainQueue carries directives from a running handler straight to the
// executor, bypassing the host event queue. The relay goroutine is the only
// producer, and the executor goroutine the only consumer. A nil entry is the
// sentinel marking the end of a handler.
type drainQueue struct {
	ring   drainRing
	notify chan struct{}
	// finished receives a token once the handler feeding the queue returns,
	// whether or not its sentinel made it in
	finished chan struct{}
	closed   atomic.Bool
}

func newDrainQueue(capacity int) *drainQueue {
	d := &drainQueue{
		notify:   make(chan struct{}, 1),
		finished: make(chan struct{}, 1),
	}
	d.ring.init(capacity)
	return d
}

func (d *drainQueue) signal() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// push never blocks.
func (d *drainQueue) push(env *envelope) error {
	if d.closed.Load() {
		return errTerminated
	}
	if err := d.ring.enqueue(env); err != nil {
		if iox.IsWouldBlock(err) {
			return errQueueFull
		}
		return err
	}
	d.signal()
	return nil
}

// finish ends a handler's batch. The sentinel waits for space, unless the
// queue is closed, in which case only the finished token is sent.
func (d *drainQueue) finish() {
	var bo iox.Backoff
	for d.ring.enqueue(nil) != nil {
		if d.closed.Load() {
			break
		}
		bo.Wait()
	}
	d.signal()
	select {
	case d.finished <- struct{}{}:
	default:
	}
}

// pop blocks until an entry is available.
func (d *drainQueue) pop() *envelope {
	for {
		if env, ok := d.ring.dequeue(); ok {
			return env
		}
		<-d.notify
	}
}

// tryPop returns false if the queue is empty.
func (d *drainQueue) tryPop() (*envelope, bool) {
	return d.ring.dequeue()
}

// discard drops every queued directive until the handler feeding the queue
// has finished. The queue must be closed.
func (d *drainQueue) discard() {
	for {
		env, ok := d.ring.dequeue()
		if ok {
			if env == nil {
				return
			}
			env.sender.Drop()
			continue
		}
		select {
		case <-d.notify:
		case <-d.finished:
			for env, ok := d.ring.dequeue(); ok; env, ok = d.ring.dequeue() {
				if env != nil {
					env.sender.Drop()
				}
			}
			return
		}
	}
}
