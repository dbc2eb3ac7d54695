package affinity

import (
	"fmt"

	"github.com/joeycumines/go-affinity/host"
)

type relayKind uint8

const (
	relayStart relayKind = iota
	relayStop
	relayRunEvent
)

func (k relayKind) String() string {
	switch k {
	case relayStart:
		return `Start`
	case relayStop:
		return `Stop`
	case relayRunEvent:
		return `RunEvent`
	default:
		return fmt.Sprintf(`relayKind(%d)`, uint8(k))
	}
}

// relayMsg is sent by the executor on Executor.relayCtl. The remaining
// fields are only set for relayRunEvent.
type relayMsg struct {
	kind    relayKind
	session *Session
	event   Event
	handler Handler
	drain   *drainQueue
}

// relayState is the relay's state machine:
//
//	relaying --Stop--> stopped --RunEvent--> stopped --Start--> relaying
//
// Stop while stopped and Start while relaying are no-ops.
type relayState struct {
	stopped bool
}

// apply transitions on msg, reporting whether the relay state changed.
// It panics with [ErrRelayState] if a handler is dispatched while relaying.
func (s *relayState) apply(k relayKind) bool {
	switch k {
	case relayStart:
		if s.stopped {
			s.stopped = false
			return true
		}
	case relayStop:
		if !s.stopped {
			s.stopped = true
			return true
		}
	case relayRunEvent:
		if !s.stopped {
			panic(fmt.Errorf(`%w: %v received while relaying`, ErrRelayState, k))
		}
	default:
		panic(fmt.Errorf(`%w: %v`, ErrRelayState, k))
	}
	return false
}

// callbackScope identifies the goroutine running a handler, and where its
// directives go.
type callbackScope struct {
	gid   uint64
	drain *drainQueue
}

// relay forwards queued directives to the host, as directive events posted at
// the front of its queue. While stopped, it leaves ingress alone, and runs
// handlers on behalf of the executor.
func (x *Executor) relay() {
	defer close(x.relayDone)

	gid := getGoroutineID()
	batch := make([]*envelope, 0, x.opts.relayBatch)
	var state relayState

	for {
		if state.stopped {
			select {
			case msg := <-x.relayCtl:
				if state.apply(msg.kind) {
					x.logger.Trace().Stringer(`msg`, msg.kind).Log(`relay resumed`)
				}
				if msg.kind == relayRunEvent {
					x.runHandler(gid, msg)
				}
			case <-x.relayStop:
				return
			}
			continue
		}

		select {
		case msg := <-x.relayCtl:
			if state.apply(msg.kind) {
				x.logger.Trace().Stringer(`msg`, msg.kind).Log(`relay stopped`)
			}

		case env := <-x.ingress:
			batch = append(batch, env)
		Fill:
			for len(batch) < cap(batch) {
				select {
				case env := <-x.ingress:
					batch = append(batch, env)
				default:
					break Fill
				}
			}
			for i, env := range batch {
				x.post(env)
				batch[i] = nil
			}
			batch = batch[:0]

		case <-x.relayStop:
			return
		}
	}
}

func (x *Executor) post(env *envelope) {
	if err := x.backend.PostEvent(host.NewDirectiveEvent(env), true); err != nil {
		x.logger.Warning().
			Err(err).
			Uint64(`session`, env.manager).
			Str(`directive`, directiveName(env.sender.Input())).
			Log(`dropping directive`)
		env.sender.Drop()
	}
}

// runHandler runs on the relay goroutine, while the executor drains
// msg.drain. The batch is always finished, even if the handler panics.
func (x *Executor) runHandler(gid uint64, msg relayMsg) {
	x.scope.Store(&callbackScope{gid: gid, drain: msg.drain})
	defer func() {
		x.scope.Store(nil)
		if r := recover(); r != nil {
			x.logger.Err().
				Any(`panic`, r).
				Uint64(`session`, msg.session.id).
				Stringer(`event`, msg.event.Kind).
				Log(`handler panicked`)
		}
		msg.drain.finish()
	}()
	if msg.handler != nil {
		msg.handler(msg.session, msg.event)
	}
}
