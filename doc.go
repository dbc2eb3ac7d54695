// Package affinity marshals work onto a single dedicated "affinity" thread,
// for state that may only be touched from one OS thread, such as a native
// windowing system.
//
// # Architecture
//
// An [Executor] runs one goroutine, locked to its OS thread, which blocks on
// the host event source ([host.EventSource]). Callers never touch session
// state directly. Instead, each request is a [Directive], paired with a
// one-shot [task.Sender] that the executor completes once the directive has
// been performed. The caller keeps the [task.Receiver], and may block on it,
// or await it.
//
// Directives are relayed to the executor by a second goroutine, which posts
// each one to the front of the host event queue, as a synthetic event
// tagged with [host.DirectiveSubtype]. Native events are forwarded to the
// platform's default handling, then translated into an [Event] and delivered
// to the owning session's [Handler].
//
// # Sessions
//
// Any number of sessions may share an executor. Each is registered with
// [Executor.Register], receives a small integer id (starting at 0, never
// reused), and tracks the number of resources it owns. When that count drops
// to zero, the session's handler receives [EventQuit], exactly once.
//
// # Reentrancy
//
// Handlers run on the relay goroutine, while the executor waits. A handler
// may submit directives and block on them: these bypass the host queue, and
// are performed by the executor directly, until the handler returns.
// Directives submitted by any other goroutine meanwhile are deferred until
// then. Only one handler runs at a time.
//
// # Ordering
//
// Directives from a single goroutine are performed in the order submitted.
// Directives are served ahead of pending native events, but after any
// directive that was already posted.
//
// # Errors
//
// There is no cancellation. A submitted directive is always eventually
// performed, in which case its receiver resolves with the operation's result,
// or its sender is dropped, in which case the receiver resolves with
// [task.ErrChannelClosed]. Operations on a session that was never registered
// are fatal, and abort the executor.
//
// # Usage
//
//	x, err := affinity.Shared()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s, err := x.Register(func(s *affinity.Session, ev affinity.Event) {
//	    log.Println(ev.Kind, ev.Handle)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	h, err := s.Create(host.CreateOptions{Width: 640, Height: 480}).Wait()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_, _ = s.Close(h).Wait()
package affinity
