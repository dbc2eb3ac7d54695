package affinity

import (
	"github.com/joeycumines/go-affinity/host"
)

// manager is the executor-owned state of one session.
type manager struct {
	runtimeID uint64
	resources int
	handler   Handler
	// waiting is set while a handler runs for this session
	waiting bool
	drain   *drainQueue
}

// registry is an arena of sessions, owned by the executor goroutine. Entries
// are never removed, and ids are never reused.
type registry struct {
	entries []*manager
	next    uint64
	owners  map[host.Handle]*manager
}

func (r *registry) register(handler Handler, drainCapacity int) *manager {
	m := &manager{
		runtimeID: r.next,
		handler:   handler,
		drain:     newDrainQueue(drainCapacity),
	}
	r.next++
	r.entries = append(r.entries, m)
	return m
}

// lookup panics with [*UnknownSessionError] if id was never registered.
func (r *registry) lookup(id uint64) *manager {
	if len(r.entries) == 1 {
		if id == 0 {
			return r.entries[0]
		}
	} else {
		for _, m := range r.entries {
			if m.runtimeID == id {
				return m
			}
		}
	}
	panic(&UnknownSessionError{ID: id})
}

func (r *registry) replaceHandler(id uint64, handler Handler) {
	r.lookup(id).handler = handler
}

func (r *registry) own(h host.Handle, m *manager) {
	if r.owners == nil {
		r.owners = make(map[host.Handle]*manager)
	}
	r.owners[h] = m
}

func (r *registry) disown(h host.Handle) {
	delete(r.owners, h)
}

func (r *registry) owner(h host.Handle) (*manager, bool) {
	m, ok := r.owners[h]
	return m, ok
}
