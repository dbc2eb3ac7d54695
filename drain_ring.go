//go:build !race

package affinity

import (
	"code.hybscloud.com/lfq"
)

// drainRing is a bounded lock-free SPSC ring. Enqueue fails with
// iox.ErrWouldBlock when full.
type drainRing struct {
	q lfq.SPSC[*envelope]
}

func (r *drainRing) init(capacity int) { r.q.Init(capacity) }

func (r *drainRing) enqueue(env *envelope) error { return r.q.Enqueue(&env) }

func (r *drainRing) dequeue() (*envelope, bool) {
	env, err := r.q.Dequeue()
	return env, err == nil
}
