package host

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadless_PostEvent_ordering(t *testing.T) {
	x := NewHeadless()
	native1 := &Event{Type: TypeInput, Payload: "n1"}
	native2 := &Event{Type: TypeInput, Payload: "n2"}
	d1 := NewDirectiveEvent("d1")
	d2 := NewDirectiveEvent("d2")
	require.NoError(t, x.PostEvent(native1, false))
	require.NoError(t, x.PostEvent(d1, true))
	require.NoError(t, x.PostEvent(native2, false))
	require.NoError(t, x.PostEvent(d2, true))

	var got []any
	for range 4 {
		ev, err := x.NextEvent(DistantFuture)
		require.NoError(t, err)
		got = append(got, ev.Payload)
	}
	assert.Equal(t, []any{"d1", "d2", "n1", "n2"}, got)
}

func TestHeadless_NextEvent_deadline(t *testing.T) {
	x := NewHeadless()
	start := time.Now()
	ev, err := x.NextEvent(start.Add(30 * time.Millisecond))
	if ev != nil || err != nil {
		t.Fatal(ev, err)
	}
	if d := time.Since(start); d < 25*time.Millisecond {
		t.Fatal(d)
	}

	ev, err = x.NextEvent(time.Time{})
	if ev != nil || err != nil {
		t.Fatal(ev, err)
	}
}

func TestHeadless_NextEvent_wakes(t *testing.T) {
	x := NewHeadless()
	out := make(chan *Event, 1)
	go func() {
		ev, _ := x.NextEvent(DistantFuture)
		out <- ev
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, x.PostEvent(NewDirectiveEvent(1), true))
	select {
	case ev := <-out:
		if !ev.IsDirective() || ev.Payload != 1 {
			t.Fatal(ev)
		}
	case <-time.After(time.Second):
		t.Fatal("expected wake")
	}
}

func TestHeadless_Terminate(t *testing.T) {
	x := NewHeadless()
	require.NoError(t, x.PostEvent(NewDirectiveEvent("queued"), true))
	x.Terminate()

	if err := x.PostEvent(NewDirectiveEvent("late"), true); err != ErrTerminated {
		t.Fatal(err)
	}
	if _, err := x.Create(CreateOptions{Width: 1, Height: 1}); err != ErrTerminated {
		t.Fatal(err)
	}

	ev, err := x.NextEvent(DistantFuture)
	require.NoError(t, err)
	require.Equal(t, "queued", ev.Payload)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if ev, err := x.NextEvent(DistantFuture); ev != nil || err != nil {
			t.Error(ev, err)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected terminated source to return nil")
	}
}

func TestHeadless_resources(t *testing.T) {
	x := NewHeadless()

	_, err := x.Create(CreateOptions{Width: 0, Height: 10})
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Fatal(err)
	}

	h1, err := x.Create(CreateOptions{X: 1, Y: 2, Width: 640, Height: 480, Title: "one"})
	require.NoError(t, err)
	h2, err := x.Create(CreateOptions{Width: 1, Height: 1})
	require.NoError(t, err)
	assert.NotZero(t, h1)
	assert.Greater(t, h2, h1)
	assert.Equal(t, 2, x.Len())

	require.NoError(t, x.Show(h1))
	require.NoError(t, x.Move(h1, 10, 20))
	r, ok := x.Resource(h1)
	require.True(t, ok)
	assert.Equal(t, Resource{Handle: h1, Options: CreateOptions{X: 1, Y: 2, Width: 640, Height: 480, Title: "one"}, X: 10, Y: 20, Visible: true}, r)

	require.NoError(t, x.Hide(h1))
	r, _ = x.Resource(h1)
	assert.False(t, r.Visible)

	require.NoError(t, x.Close(h1))
	_, ok = x.Resource(h1)
	assert.False(t, ok)
	for _, err := range []error{x.Close(h1), x.Show(h1), x.Hide(h1), x.Move(h1, 0, 0)} {
		assert.ErrorIs(t, err, ErrUnknownResource)
	}
	assert.Equal(t, 1, x.Len())
}

func TestHeadless_nativeEvents(t *testing.T) {
	x := NewHeadless()
	require.NoError(t, x.InjectInput(3, "click"))
	require.NoError(t, x.RequestClose(3))

	ev, _ := x.NextEvent(DistantFuture)
	assert.Equal(t, TypeInput, ev.Type)
	assert.Equal(t, Handle(3), ev.Resource)
	assert.False(t, ev.IsDirective())
	x.SendEvent(ev)

	ev, _ = x.NextEvent(DistantFuture)
	assert.Equal(t, TypeCloseRequest, ev.Type)
	x.SendEvent(ev)

	handled := x.Handled()
	require.Len(t, handled, 2)
	assert.Equal(t, "click", handled[0].Payload)
}

func TestEvent_IsDirective(t *testing.T) {
	var ev *Event
	assert.False(t, ev.IsDirective())
	assert.False(t, (&Event{Type: TypeApplicationDefined}).IsDirective())
	assert.True(t, NewDirectiveEvent(nil).IsDirective())
	assert.Equal(t, "CloseRequest", TypeCloseRequest.String())
	assert.Equal(t, "Type(99)", Type(99).String())
	assert.Equal(t, "resource#4", Handle(4).String())
}
