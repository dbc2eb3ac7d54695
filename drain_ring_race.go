//go:build race

package affinity

import (
	"code.hybscloud.com/iox"
)

// drainRing is backed by a channel under the race detector, which tracks
// per-variable happens-before and cannot see the ordering of the lock-free
// ring, load-acquire on the index guarding store-release on the data.
type drainRing struct {
	q chan *envelope
}

func (r *drainRing) init(capacity int) { r.q = make(chan *envelope, capacity) }

func (r *drainRing) enqueue(env *envelope) error {
	select {
	case r.q <- env:
		return nil
	default:
		return iox.ErrWouldBlock
	}
}

func (r *drainRing) dequeue() (*envelope, bool) {
	select {
	case env := <-r.q:
		return env, true
	default:
		return nil, false
	}
}
