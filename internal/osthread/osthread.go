// Package osthread reports the identity of the calling OS thread.
package osthread

// ID returns the kernel thread id of the calling goroutine's current thread,
// or -1 where that is unsupported. The result is only stable for goroutines
// locked with [runtime.LockOSThread].
func ID() int { return id() }
