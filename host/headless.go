package host

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
)

// Resource is a snapshot of a resource held by [Headless].
type Resource struct {
	Handle  Handle
	Options CreateOptions
	X, Y    int
	Visible bool
}

// Headless is an in-memory [Backend]. Its event queue is a pair of FIFOs:
// events posted at the start, then everything else.
//
// The zero value is not usable, use [NewHeadless].
type Headless struct {
	mu         sync.Mutex
	front      []*Event
	back       []*Event
	signal     chan struct{}
	terminated bool
	resources  map[Handle]*Resource
	handled    []*Event
	ids        atomix.Uint32
}

var _ Backend = (*Headless)(nil)

// NewHeadless returns an empty, running Headless backend.
func NewHeadless() *Headless {
	return &Headless{
		signal:    make(chan struct{}, 1),
		resources: make(map[Handle]*Resource),
	}
}

func (x *Headless) wake() {
	select {
	case x.signal <- struct{}{}:
	default:
	}
}

// NextEvent pops the next event, front-posted events first, waiting until
// deadline at the latest.
func (x *Headless) NextEvent(deadline time.Time) (*Event, error) {
	var timeout <-chan time.Time
	if deadline.Before(DistantFuture) {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timeout = timer.C
	}
	for {
		x.mu.Lock()
		var ev *Event
		switch {
		case len(x.front) != 0:
			ev, x.front[0] = x.front[0], nil
			x.front = x.front[1:]
		case len(x.back) != 0:
			ev, x.back[0] = x.back[0], nil
			x.back = x.back[1:]
		}
		terminated := x.terminated
		x.mu.Unlock()

		if ev != nil || terminated {
			return ev, nil
		}

		select {
		case <-x.signal:
		case <-timeout:
			// one last look, in case of a race with a post
			x.mu.Lock()
			empty := len(x.front) == 0 && len(x.back) == 0
			x.mu.Unlock()
			if empty {
				return nil, nil
			}
			timeout = nil
		}
	}
}

// PostEvent queues ev, at the front if atStart, behind any earlier
// front-posted events.
func (x *Headless) PostEvent(ev *Event, atStart bool) error {
	if ev == nil {
		return errNilEvent
	}
	x.mu.Lock()
	if x.terminated {
		x.mu.Unlock()
		return ErrTerminated
	}
	if atStart {
		x.front = append(x.front, ev)
	} else {
		x.back = append(x.back, ev)
	}
	x.mu.Unlock()
	x.wake()
	return nil
}

// SendEvent records the event as handled by the platform.
func (x *Headless) SendEvent(ev *Event) {
	x.mu.Lock()
	x.handled = append(x.handled, ev)
	x.mu.Unlock()
}

// Handled returns every event passed to [Headless.SendEvent], in order.
func (x *Headless) Handled() []*Event {
	x.mu.Lock()
	defer x.mu.Unlock()
	return slices.Clone(x.handled)
}

// InjectInput queues a native input event for h.
func (x *Headless) InjectInput(h Handle, data any) error {
	return x.PostEvent(&Event{Type: TypeInput, Resource: h, Payload: data, Timestamp: time.Now()}, false)
}

// RequestClose queues a native close request for h, as a user clicking the
// close button would.
func (x *Headless) RequestClose(h Handle) error {
	return x.PostEvent(&Event{Type: TypeCloseRequest, Resource: h, Timestamp: time.Now()}, false)
}

// Terminate stops accepting posts. Events already queued are still
// returned by NextEvent, after which it returns nil.
func (x *Headless) Terminate() {
	x.mu.Lock()
	x.terminated = true
	x.mu.Unlock()
	x.wake()
}

// Resource returns a snapshot of a live resource.
func (x *Headless) Resource(h Handle) (Resource, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if r, ok := x.resources[h]; ok {
		return *r, true
	}
	return Resource{}, false
}

// Len returns the number of live resources.
func (x *Headless) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.resources)
}

// Create allocates a resource. Width and height must be positive.
func (x *Headless) Create(opts CreateOptions) (Handle, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, opts.Width, opts.Height)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.terminated {
		return 0, ErrTerminated
	}
	h := Handle(x.ids.Add(1))
	x.resources[h] = &Resource{
		Handle:  h,
		Options: opts,
		X:       opts.X,
		Y:       opts.Y,
	}
	return h, nil
}

func (x *Headless) Show(h Handle) error {
	return x.update(h, func(r *Resource) { r.Visible = true })
}

func (x *Headless) Hide(h Handle) error {
	return x.update(h, func(r *Resource) { r.Visible = false })
}

func (x *Headless) Move(h Handle, px, py int) error {
	return x.update(h, func(r *Resource) { r.X, r.Y = px, py })
}

func (x *Headless) Close(h Handle) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.resources[h]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownResource, h)
	}
	delete(x.resources, h)
	return nil
}

func (x *Headless) update(h Handle, fn func(r *Resource)) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	r, ok := x.resources[h]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownResource, h)
	}
	fn(r)
	return nil
}
