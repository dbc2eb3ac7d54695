package affinity

import (
	"fmt"

	"github.com/joeycumines/go-affinity/host"
)

// EventKind classifies an [Event].
type EventKind uint8

const (
	_ EventKind = iota
	// EventQuit is delivered once each time a session's resource count
	// drops to zero.
	EventQuit
	// EventClose is delivered after one of the session's resources closed.
	EventClose
	// EventInput carries native input for one of the session's resources.
	EventInput
)

func (k EventKind) String() string {
	switch k {
	case EventQuit:
		return `Quit`
	case EventClose:
		return `Close`
	case EventInput:
		return `Input`
	default:
		return fmt.Sprintf(`EventKind(%d)`, uint8(k))
	}
}

// Event is delivered to a session's [Handler].
type Event struct {
	Kind   EventKind
	Handle host.Handle
	Data   any
}

// Handler receives the events of one session. Handlers run one at a time,
// and may submit directives through s, and wait on them.
//
// Directives submitted by other goroutines, while a handler runs, are not
// processed until it returns. A handler must therefore never wait on work
// that it hands off to another goroutine.
type Handler func(s *Session, ev Event)
