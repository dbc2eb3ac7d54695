package affinity

import (
	"github.com/joeycumines/go-affinity/host"
	"github.com/joeycumines/go-affinity/task"
)

// Session is a handle to one registered session. It is safe to use from any
// goroutine, including from within handlers.
//
// Every operation returns immediately. The returned receiver resolves once
// the affinity thread has performed it, with the operation's own error if it
// failed, [ErrDispatchFailed] if it could not be queued, or
// [task.ErrChannelClosed] if the executor terminated first.
type Session struct {
	x  *Executor
	id uint64
}

// ID returns the session's runtime id, unique within its executor.
func (s *Session) ID() uint64 { return s.id }

// Executor returns the executor the session belongs to.
func (s *Session) Executor() *Executor { return s.x }

// Create creates a resource owned by the session. Invalid geometry fails
// with [host.ErrInvalidGeometry].
func (s *Session) Create(opts host.CreateOptions) *task.Receiver[host.Handle] {
	return submit[host.Handle](s.x, s.id, Create{Options: opts})
}

// Show makes h visible. It fails with [ErrUnknownResource] unless h is owned
// by the session.
func (s *Session) Show(h host.Handle) *task.Receiver[struct{}] {
	return submit[struct{}](s.x, s.id, Show{Handle: h})
}

// Hide is the inverse of [Session.Show].
func (s *Session) Hide(h host.Handle) *task.Receiver[struct{}] {
	return submit[struct{}](s.x, s.id, Hide{Handle: h})
}

// Close closes h. The session's handler then receives [EventClose], followed
// by [EventQuit] if it was the session's last resource.
func (s *Session) Close(h host.Handle) *task.Receiver[struct{}] {
	return submit[struct{}](s.x, s.id, Close{Handle: h})
}

// Move repositions h to (x, y).
func (s *Session) Move(h host.Handle, x, y int) *task.Receiver[struct{}] {
	return submit[struct{}](s.x, s.id, Move{Handle: h, X: x, Y: y})
}

// SetHandler replaces the session's handler. An event already being handled
// is unaffected.
func (s *Session) SetHandler(handler Handler) *task.Receiver[struct{}] {
	return submit[struct{}](s.x, s.id, SetHandler{Handler: handler})
}

// ResourceCount reads the number of live resources owned by the session.
func (s *Session) ResourceCount() *task.Receiver[int] {
	return submit[int](s.x, s.id, ResourceCount{})
}

// Spawn runs work on the affinity thread, as an [Offload] directive. A panic
// in work resolves as a [*PanicError].
//
// Work must not wait on directives, since it runs on the thread that would
// perform them.
func Spawn[T any](x *Executor, work func() (T, error)) *task.Receiver[T] {
	return submit[T](x, 0, Offload{Work: func() (any, error) {
		v, err := work()
		return v, err
	}})
}
