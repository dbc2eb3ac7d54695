package affinity

import (
	"errors"
	"testing"

	"github.com/joeycumines/go-affinity/host"
)

func TestRegistry_register(t *testing.T) {
	var r registry
	a := r.register(nil, 4)
	b := r.register(nil, 4)
	if a.runtimeID != 0 || b.runtimeID != 1 {
		t.Fatal(a.runtimeID, b.runtimeID)
	}
	if a.drain == nil || a.drain == b.drain {
		t.Fatal("expected a drain queue per session")
	}
	a.resources = 0
	if c := r.register(nil, 4); c.runtimeID != 2 {
		t.Fatal(c.runtimeID)
	}
}

func TestRegistry_lookup(t *testing.T) {
	var r registry
	a := r.register(nil, 4)
	if m := r.lookup(0); m != a {
		t.Fatal(m)
	}
	b := r.register(nil, 4)
	if m := r.lookup(1); m != b {
		t.Fatal(m)
	}
	if m := r.lookup(0); m != a {
		t.Fatal(m)
	}
}

func TestRegistry_lookup_unknown(t *testing.T) {
	for _, tc := range [...]struct {
		name     string
		sessions int
		id       uint64
	}{
		{`empty`, 0, 0},
		{`single`, 1, 1},
		{`many`, 3, 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var r registry
			for range tc.sessions {
				r.register(nil, 4)
			}
			defer func() {
				err, _ := recover().(error)
				var e *UnknownSessionError
				if !errors.As(err, &e) || e.ID != tc.id || !errors.Is(err, ErrUnknownSession) {
					t.Fatal(err)
				}
			}()
			r.lookup(tc.id)
		})
	}
}

func TestRegistry_replaceHandler(t *testing.T) {
	var r registry
	m := r.register(nil, 4)
	var called bool
	r.replaceHandler(0, func(*Session, Event) { called = true })
	m.handler(nil, Event{})
	if !called {
		t.Fatal("expected replaced handler")
	}
}

func TestRegistry_ownership(t *testing.T) {
	var r registry
	a := r.register(nil, 4)
	if _, ok := r.owner(1); ok {
		t.Fatal("expected no owner")
	}
	r.own(1, a)
	if m, ok := r.owner(host.Handle(1)); !ok || m != a {
		t.Fatal(m, ok)
	}
	r.disown(1)
	if _, ok := r.owner(1); ok {
		t.Fatal("expected no owner")
	}
}
