package affinity

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-affinity/host"
	"github.com/joeycumines/go-affinity/internal/osthread"
	"github.com/joeycumines/go-affinity/task"
	"github.com/joeycumines/logiface"
)

// Executor owns the affinity thread: a single goroutine, locked to its OS
// thread, which runs the host event loop and performs every directive.
type Executor struct {
	opts    *executorOptions
	backend host.Backend
	logger  *logiface.Logger[logiface.Event]

	state fastState

	// mu guards sends on ingress against termination
	mu         sync.RWMutex
	terminated bool
	ingress    chan *envelope

	relayCtl  chan relayMsg
	relayStop chan struct{}
	relayDone chan struct{}
	scope     atomic.Pointer[callbackScope]

	goroutineID atomic.Uint64
	threadID    atomic.Int64
	done        chan struct{}

	// the remaining fields are owned by the executor goroutine

	registry registry
	pending  []pendingEvent
	// cycle is the session whose handler is running, if any
	cycle *manager
	// inflight holds the directives being processed, outermost first, which
	// nest while a handler runs
	inflight []*envelope
	quit     bool
}

type pendingEvent struct {
	manager *manager
	event   Event
}

var shared struct {
	once sync.Once
	x    *Executor
	err  error
}

// Shared returns the process-wide executor, starting it on first use. The
// options only apply to the first call. It lives until the process exits,
// and should not be shut down.
func Shared(opts ...Option) (*Executor, error) {
	shared.once.Do(func() {
		shared.x, shared.err = New(opts...)
	})
	return shared.x, shared.err
}

// New starts a new executor. Most programs should use [Shared].
func New(opts ...Option) (*Executor, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	x := &Executor{
		opts:      cfg,
		backend:   cfg.backend,
		logger:    cfg.logger,
		ingress:   make(chan *envelope, cfg.ingressCapacity),
		relayCtl:  make(chan relayMsg),
		relayStop: make(chan struct{}),
		relayDone: make(chan struct{}),
		done:      make(chan struct{}),
	}
	x.threadID.Store(-1)

	ready := make(chan struct{})
	go x.relay()
	go x.run(ready)
	<-ready

	return x, nil
}

// Done is closed once the executor has terminated.
func (x *Executor) Done() <-chan struct{} { return x.done }

// State returns the executor's current lifecycle state.
func (x *Executor) State() ExecutorState { return x.state.Load() }

// ThreadID returns the OS thread id of the affinity thread, or -1 if it is
// unavailable on this platform.
func (x *Executor) ThreadID() int { return int(x.threadID.Load()) }

// Register creates a new session, blocking until it is allocated.
func (x *Executor) Register(handler Handler) (*Session, error) {
	id, err := submit[uint64](x, 0, RegisterManager{Handler: handler}).Wait()
	if err != nil {
		return nil, err
	}
	return &Session{x: x, id: id}, nil
}

// Session returns a handle for a session id previously returned by
// [Session.ID]. Submitting an [Op] for an id that was never registered is a
// fatal error.
func (x *Executor) Session(id uint64) *Session { return &Session{x: x, id: id} }

// Quit stops the executor once the directive is processed.
func (x *Executor) Quit() *task.Receiver[struct{}] {
	return submit[struct{}](x, 0, Quit{})
}

// Shutdown requests the executor quit, then waits for it to terminate, or
// for ctx to be done.
func (x *Executor) Shutdown(ctx context.Context) error {
	if x.onExecutor() || x.inHandler() {
		return ErrReentrantShutdown
	}
	x.Quit()
	select {
	case <-x.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (x *Executor) onExecutor() bool {
	id := x.goroutineID.Load()
	return id != 0 && id == getGoroutineID()
}

func (x *Executor) inHandler() bool {
	sc := x.scope.Load()
	return sc != nil && sc.gid == getGoroutineID()
}

// submit never blocks. Failure to enqueue is delivered through the
// returned receiver.
func submit[T any](x *Executor, manager uint64, d Directive) *task.Receiver[T] {
	r, s := task.New[T](d)
	if err := x.dispatch(&envelope{manager: manager, sender: s}); err != nil {
		x.logger.Warning().
			Err(err).
			Uint64(`session`, manager).
			Str(`directive`, directiveName(d)).
			Log(`dispatch failed`)
		s.Complete(nil, err)
	}
	return r
}

// dispatch routes directives issued by a running handler to its drain
// queue, and everything else through ingress and the relay.
func (x *Executor) dispatch(env *envelope) error {
	if sc := x.scope.Load(); sc != nil && sc.gid == getGoroutineID() {
		return sc.drain.push(env)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.terminated {
		return errTerminated
	}
	select {
	case x.ingress <- env:
		return nil
	default:
		return errQueueFull
	}
}

func (x *Executor) run(ready chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	x.goroutineID.Store(getGoroutineID())
	x.threadID.Store(int64(osthread.ID()))
	x.state.TryTransition(StateAwake, StateRunning)
	close(ready)

	x.logger.Info().
		Int(`tid`, x.ThreadID()).
		Log(`executor started`)

	var fatal any
	func() {
		defer func() { fatal = recover() }()
		x.loop()
	}()

	x.terminate()

	if fatal != nil {
		x.logger.Crit().
			Any(`panic`, fatal).
			Log(`executor aborted`)
		x.opts.fatal(fatal)
	}

	x.state.Store(StateTerminated)
	x.logger.Info().Log(`executor stopped`)
	close(x.done)
}

func (x *Executor) loop() {
	for !x.quit {
		ev, err := x.backend.NextEvent(host.DistantFuture)
		if err != nil {
			x.logger.Err().Err(err).Log(`host event source failed`)
			return
		}
		if ev == nil {
			x.logger.Debug().Log(`host event source terminated`)
			return
		}

		if ev.IsDirective() {
			env, ok := ev.Payload.(*envelope)
			if !ok {
				x.logger.Warning().
					Str(`payload`, fmt.Sprintf(`%T`, ev.Payload)).
					Log(`ignoring foreign directive event`)
				continue
			}
			x.process(env)
			continue
		}

		x.backend.SendEvent(ev)
		x.native(ev)
		x.flush()
	}
}

// process performs a directive and completes its sender. Outside a handler,
// any events it produced are delivered first.
func (x *Executor) process(env *envelope) {
	x.inflight = append(x.inflight, env)

	var (
		value any
		err   error
	)
	switch d := env.sender.Input().(type) {
	case Control:
		value, err = x.control(d)
	case Op:
		value, err = x.execute(x.registry.lookup(env.manager), d)
	default:
		panic(fmt.Sprintf(`affinity: illegal directive %T`, d))
	}

	if x.cycle == nil {
		x.flush()
	}

	x.inflight[len(x.inflight)-1] = nil
	x.inflight = x.inflight[:len(x.inflight)-1]
	env.sender.Complete(value, err)
}

func (x *Executor) control(d Control) (any, error) {
	switch d := d.(type) {
	case Quit:
		x.quit = true
		return nil, nil

	case RegisterManager:
		m := x.registry.register(d.Handler, x.opts.drainCapacity)
		x.logger.Debug().
			Uint64(`session`, m.runtimeID).
			Log(`session registered`)
		return m.runtimeID, nil

	case Offload:
		return x.offload(d.Work)

	default:
		panic(fmt.Sprintf(`affinity: illegal control directive %T`, d))
	}
}

func (x *Executor) offload(work func() (any, error)) (value any, err error) {
	if work == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			x.logger.Err().
				Any(`panic`, r).
				Log(`offload panicked`)
			value, err = nil, &PanicError{Value: r}
		}
	}()
	return work()
}

func (x *Executor) execute(m *manager, d Op) (any, error) {
	switch d := d.(type) {
	case Create:
		h, err := x.backend.Create(d.Options)
		if err != nil {
			return nil, fmt.Errorf(`affinity: create: %w`, err)
		}
		m.resources++
		x.registry.own(h, m)
		return h, nil

	case Show:
		return nil, x.resourceOp(m, d.Handle, `show`, x.backend.Show)

	case Hide:
		return nil, x.resourceOp(m, d.Handle, `hide`, x.backend.Hide)

	case Move:
		return nil, x.resourceOp(m, d.Handle, `move`, func(h host.Handle) error {
			return x.backend.Move(h, d.X, d.Y)
		})

	case Close:
		if err := x.resourceOp(m, d.Handle, `close`, x.backend.Close); err != nil {
			return nil, err
		}
		x.closed(m, d.Handle)
		return nil, nil

	case SetHandler:
		x.registry.replaceHandler(m.runtimeID, d.Handler)
		return nil, nil

	case ResourceCount:
		return m.resources, nil

	default:
		panic(fmt.Sprintf(`affinity: illegal op %T`, d))
	}
}

func (x *Executor) resourceOp(m *manager, h host.Handle, name string, fn func(h host.Handle) error) error {
	if owner, ok := x.registry.owner(h); !ok || owner != m {
		return fmt.Errorf(`%w: %v`, ErrUnknownResource, h)
	}
	if err := fn(h); err != nil {
		return fmt.Errorf(`affinity: %s %v: %w`, name, h, err)
	}
	return nil
}

// closed records that h is gone, queueing the session's close event.
func (x *Executor) closed(m *manager, h host.Handle) {
	x.registry.disown(h)
	x.pending = append(x.pending, pendingEvent{manager: m, event: Event{Kind: EventClose, Handle: h}})
}

// native translates a native event, queueing it for its session.
func (x *Executor) native(ev *host.Event) {
	if ev.Type != host.TypeInput && ev.Type != host.TypeCloseRequest {
		return
	}

	m, ok := x.registry.owner(ev.Resource)
	if !ok {
		x.logger.Debug().
			Stringer(`resource`, ev.Resource).
			Stringer(`type`, ev.Type).
			Log(`ignoring event for unknown resource`)
		return
	}

	switch ev.Type {
	case host.TypeInput:
		x.pending = append(x.pending, pendingEvent{manager: m, event: Event{Kind: EventInput, Handle: ev.Resource, Data: ev.Payload}})

	case host.TypeCloseRequest:
		if err := x.backend.Close(ev.Resource); err != nil {
			x.logger.Warning().
				Err(err).
				Stringer(`resource`, ev.Resource).
				Log(`close request failed`)
			return
		}
		x.closed(m, ev.Resource)
	}
}

// flush delivers pending events in order. Closing a session's last resource
// queues exactly one quit event, ahead of anything else.
func (x *Executor) flush() {
	if x.cycle != nil {
		return
	}
	for len(x.pending) != 0 {
		p := x.pending[0]
		x.pending[0] = pendingEvent{}
		x.pending = x.pending[1:]

		x.deliver(p.manager, p.event)

		if p.event.Kind == EventClose && p.manager.resources > 0 {
			p.manager.resources--
			if p.manager.resources == 0 {
				x.pending = slices.Insert(x.pending, 0, pendingEvent{manager: p.manager, event: Event{Kind: EventQuit}})
			}
		}
	}
	x.pending = nil
}

// deliver runs the session's handler on the relay goroutine, processing any
// directives it issues until it returns.
func (x *Executor) deliver(m *manager, ev Event) {
	if m.waiting {
		panic(fmt.Errorf(`%w: session %d already has a handler running`, ErrRelayState, m.runtimeID))
	}
	handler := m.handler
	if handler == nil {
		return
	}

	x.state.TryTransition(StateRunning, StateDraining)
	x.cycle = m
	m.waiting = true

	x.relayCtl <- relayMsg{kind: relayStop}
	x.relayCtl <- relayMsg{
		kind:    relayRunEvent,
		session: &Session{x: x, id: m.runtimeID},
		event:   ev,
		handler: handler,
		drain:   m.drain,
	}

	for env := m.drain.pop(); env != nil; env = m.drain.pop() {
		x.process(env)
	}
	<-m.drain.finished

	x.relayCtl <- relayMsg{kind: relayStop}
	x.relayCtl <- relayMsg{kind: relayStart}

	m.waiting = false
	x.cycle = nil
	x.state.TryTransition(StateDraining, StateRunning)
}

// terminate releases everything still queued, dropping each sender.
func (x *Executor) terminate() {
	x.state.Store(StateTerminating)

	x.mu.Lock()
	x.terminated = true
	x.mu.Unlock()

	for i := len(x.inflight) - 1; i >= 0; i-- {
		x.inflight[i].sender.Drop()
	}
	x.inflight = nil

	for _, m := range x.registry.entries {
		m.drain.closed.Store(true)
	}

	// aborted mid-handler, wait for it to finish, failing anything it waits on
	if m := x.cycle; m != nil {
		m.drain.discard()
		x.cycle = nil
	}

	for _, m := range x.registry.entries {
		for env, ok := m.drain.tryPop(); ok; env, ok = m.drain.tryPop() {
			if env != nil {
				env.sender.Drop()
			}
		}
	}

	close(x.relayStop)
	<-x.relayDone

	var dropped int
	for {
		select {
		case env := <-x.ingress:
			env.sender.Drop()
			dropped++
			continue
		default:
		}
		break
	}

	for {
		ev, err := x.backend.NextEvent(time.Time{})
		if err != nil || ev == nil {
			break
		}
		if env, ok := ev.Payload.(*envelope); ok && ev.IsDirective() {
			env.sender.Drop()
			dropped++
		}
	}

	x.pending = nil

	if dropped != 0 {
		x.logger.Warning().
			Int(`count`, dropped).
			Log(`dropped queued directives`)
	}
}

func directiveName(d Directive) string {
	return fmt.Sprintf(`%T`, d)
}
