// Package host defines the boundary to the native event backend: a blocking
// event source that accepts posted synthetic events, plus the resource
// operations performed on the affinity thread.
//
// [Headless] is an in-memory implementation, suitable for tests and for
// programs that have no windowing system.
package host

import (
	"errors"
	"fmt"
	"time"
)

// DirectiveSubtype tags application-defined events that carry a queued
// directive, as opposed to anything else the platform delivers.
const DirectiveSubtype int16 = 0x1337

// DistantFuture is an effectively infinite deadline for [EventSource.NextEvent].
var DistantFuture = time.Date(4001, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	ErrTerminated      = errors.New("host: terminated")
	ErrUnknownResource = errors.New("host: unknown resource")
	ErrInvalidGeometry = errors.New("host: invalid geometry")

	errNilEvent = errors.New("host: nil event")
)

// Handle identifies a native resource. Zero is never a valid handle.
type Handle uint64

func (h Handle) String() string { return fmt.Sprintf("resource#%d", uint64(h)) }

// Type classifies an [Event].
type Type int16

const (
	_ Type = iota
	TypeApplicationDefined
	TypeInput
	TypeCloseRequest
	// TypeSystem events need only default handling.
	TypeSystem
)

func (t Type) String() string {
	switch t {
	case TypeApplicationDefined:
		return "ApplicationDefined"
	case TypeInput:
		return "Input"
	case TypeCloseRequest:
		return "CloseRequest"
	case TypeSystem:
		return "System"
	default:
		return fmt.Sprintf("Type(%d)", int16(t))
	}
}

// Event is a single item dequeued from an [EventSource].
type Event struct {
	Type      Type
	Subtype   int16
	Resource  Handle
	Payload   any
	Timestamp time.Time
}

// NewDirectiveEvent wraps an opaque payload in a synthetic wake event.
func NewDirectiveEvent(payload any) *Event {
	return &Event{
		Type:      TypeApplicationDefined,
		Subtype:   DirectiveSubtype,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// IsDirective reports whether the event was created by [NewDirectiveEvent].
func (e *Event) IsDirective() bool {
	return e != nil && e.Type == TypeApplicationDefined && e.Subtype == DirectiveSubtype
}

// CreateOptions are passed through, uninterpreted, to [Resources.Create].
type CreateOptions struct {
	X, Y          int
	Width, Height int
	Title         string
	Style         uint32
	Deferred      bool
}

// EventSource is the platform event queue.
type EventSource interface {
	// NextEvent blocks until an event is available, or deadline passes. A nil
	// event means the deadline passed, or the source terminated and is empty.
	NextEvent(deadline time.Time) (*Event, error)

	// PostEvent enqueues a synthetic event. Events posted with atStart are
	// served before any other pending event, but after earlier events that
	// were also posted with atStart.
	PostEvent(ev *Event, atStart bool) error

	// SendEvent performs the platform's default handling of a native event.
	SendEvent(ev *Event)
}

// Resources are the operations that must run on the affinity thread.
type Resources interface {
	Create(opts CreateOptions) (Handle, error)
	Show(h Handle) error
	Hide(h Handle) error
	Close(h Handle) error
	Move(h Handle, x, y int) error
}

// Backend is everything the executor consumes from the platform.
type Backend interface {
	EventSource
	Resources
}
