package affinity

import (
	"github.com/joeycumines/go-affinity/host"
	"github.com/joeycumines/go-affinity/task"
)

// Directive is a request to be performed on the affinity thread. It is
// either a [Control] or an [Op], and no other implementations exist.
type Directive interface {
	directive()
}

// Control directives need no session state.
type Control interface {
	Directive
	control()
}

// Op directives run against the state of one session.
type Op interface {
	Directive
	op()
}

type (
	// Quit stops the executor, after the current item.
	Quit struct{}

	// RegisterManager allocates a session, resolving to its id.
	RegisterManager struct {
		Handler Handler
	}

	// Offload runs Work on the affinity thread, resolving to its result.
	Offload struct {
		Work func() (any, error)
	}
)

type (
	// Create resolves to the new resource's [host.Handle].
	Create struct {
		Options host.CreateOptions
	}

	Show struct {
		Handle host.Handle
	}

	Hide struct {
		Handle host.Handle
	}

	// Close closes the resource, then delivers [EventClose] to the session.
	Close struct {
		Handle host.Handle
	}

	Move struct {
		Handle host.Handle
		X, Y   int
	}

	// SetHandler replaces the session's handler, from the next event.
	SetHandler struct {
		Handler Handler
	}

	// ResourceCount resolves to the number of live resources the session
	// owns.
	ResourceCount struct{}
)

func (Quit) directive()            {}
func (RegisterManager) directive() {}
func (Offload) directive()         {}
func (Create) directive()          {}
func (Show) directive()            {}
func (Hide) directive()            {}
func (Close) directive()           {}
func (Move) directive()            {}
func (SetHandler) directive()      {}
func (ResourceCount) directive()   {}

func (Quit) control()            {}
func (RegisterManager) control() {}
func (Offload) control()         {}

func (Create) op()        {}
func (Show) op()          {}
func (Hide) op()          {}
func (Close) op()         {}
func (Move) op()          {}
func (SetHandler) op()    {}
func (ResourceCount) op() {}

// envelope carries a directive to the executor. The manager id is only
// meaningful for an [Op].
type envelope struct {
	manager uint64
	sender  *task.Sender[Directive]
}
