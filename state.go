package affinity

import (
	"sync/atomic"
)

// ExecutorState represents the lifecycle of an [Executor].
//
//	StateAwake → StateRunning            [executor started]
//	StateRunning → StateDraining         [handler dispatched]
//	StateDraining → StateRunning         [handler returned]
//	StateRunning → StateTerminating      [Quit, or the host terminated]
//	StateDraining → StateTerminating     [fatal condition]
//	StateTerminating → StateTerminated   [queues released]
//
// Terminated is final.
type ExecutorState uint32

const (
	StateAwake ExecutorState = iota
	StateRunning
	StateDraining
	StateTerminating
	StateTerminated
)

func (s ExecutorState) String() string {
	switch s {
	case StateAwake:
		return `Awake`
	case StateRunning:
		return `Running`
	case StateDraining:
		return `Draining`
	case StateTerminating:
		return `Terminating`
	case StateTerminated:
		return `Terminated`
	default:
		return `Unknown`
	}
}

// fastState is a CAS state machine, padded to its own cache line.
type fastState struct { // betteralign:ignore
	_ [64]byte      //nolint:unused
	v atomic.Uint32 // ExecutorState
	_ [60]byte      //nolint:unused
}

func (s *fastState) Load() ExecutorState { return ExecutorState(s.v.Load()) }

// Store is for irreversible states only.
func (s *fastState) Store(state ExecutorState) { s.v.Store(uint32(state)) }

func (s *fastState) TryTransition(from, to ExecutorState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
