package task

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_Complete(t *testing.T) {
	r, s := New[int]("input")
	if v := s.Input(); v != "input" {
		t.Fatal(v)
	}
	if s.Done() {
		t.Fatal("expected pending")
	}
	if _, ok, _ := r.Poll(); ok {
		t.Fatal("expected unresolved")
	}

	go s.Complete(42, nil)

	v, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, s.Done())

	// resolved receivers may be waited on repeatedly
	v, ok, err := r.Poll()
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSender_Complete_error(t *testing.T) {
	r, s := New[uint64](struct{}{})
	s.Complete(nil, io.ErrUnexpectedEOF)
	v, err := r.Wait()
	if err != io.ErrUnexpectedEOF || v != 0 {
		t.Fatal(v, err)
	}
}

func TestSender_Complete_nilInterface(t *testing.T) {
	r, s := New[error](0)
	s.Complete(nil, nil)
	v, err := r.Wait()
	if v != nil || err != nil {
		t.Fatal(v, err)
	}
}

func TestSender_Complete_twicePanics(t *testing.T) {
	_, s := New[int](0)
	s.Complete(1, nil)
	defer func() {
		if r := recover(); r != ErrDoubleCompletion {
			t.Fatal(r)
		}
	}()
	s.Complete(2, nil)
}

func TestSender_Complete_afterDropPanics(t *testing.T) {
	_, s := New[int](0)
	s.Drop()
	assert.PanicsWithValue(t, ErrDoubleCompletion, func() { s.Complete(1, nil) })
}

func TestSender_Complete_typeMismatch(t *testing.T) {
	r, s := New[int](0)
	defer func() {
		var e *TypeMismatchError
		if err, _ := recover().(error); !errors.As(err, &e) {
			t.Fatal(err)
		}
		if e.Want.String() != "int" || e.Got.String() != "string" {
			t.Fatal(e)
		}
		// the pair is still usable
		s.Complete(3, nil)
		if v, err := r.Wait(); v != 3 || err != nil {
			t.Fatal(v, err)
		}
	}()
	s.Complete("three", nil)
}

func TestSender_Drop(t *testing.T) {
	r, s := New[int](0)
	s.Drop()
	s.Drop()
	if !s.Done() {
		t.Fatal("expected done")
	}
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("expected resolved")
	}
	v, err := r.Wait()
	if v != 0 || err != ErrChannelClosed {
		t.Fatal(v, err)
	}
}

func TestSender_Drop_afterCompleteNoop(t *testing.T) {
	r, s := New[string](0)
	s.Complete("ok", nil)
	s.Drop()
	v, err := r.Wait()
	require.NoError(t, err)
	require.Equal(t, "ok", v)
}

func TestSender_unreachableIsDropped(t *testing.T) {
	r := func() *Receiver[int] {
		r, _ := New[int](make([]byte, 64))
		return r
	}()
	deadline := time.Now().Add(10 * time.Second)
	for {
		runtime.GC()
		select {
		case <-r.Done():
			if _, err := r.Wait(); err != ErrChannelClosed {
				t.Fatal(err)
			}
			return
		case <-time.After(10 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("sender was never dropped")
		}
	}
}

func TestReceiver_Await(t *testing.T) {
	r, s := New[int](0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.Await(ctx); err != context.DeadlineExceeded {
		t.Fatal(err)
	}

	// abandoning the wait does not retract the request
	s.Complete(7, nil)
	v, err := r.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)

	// resolved takes precedence over a done context
	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	v, err = r.Await(ctx)
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestResolved(t *testing.T) {
	r := Resolved(5, io.EOF)
	v, ok, err := r.Poll()
	if !ok || v != 5 || err != io.EOF {
		t.Fatal(v, err, ok)
	}
}

func TestSender_exactlyOnce(t *testing.T) {
	const n = 64
	for range 20 {
		r, s := New[int](0)
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			panicked int
		)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if recover() != nil {
						mu.Lock()
						panicked++
						mu.Unlock()
					}
				}()
				if i%2 == 0 {
					s.Drop()
				} else {
					s.Complete(i, nil)
				}
			}()
		}
		wg.Wait()
		v, err := r.Wait()
		if err == ErrChannelClosed {
			if v != 0 {
				t.Fatal(v)
			}
		} else if err != nil || v%2 != 1 {
			t.Fatal(v, err)
		}
		// every Complete after the first resolution panics, drops never do
		if err == ErrChannelClosed && panicked != n/2 {
			t.Fatal(panicked)
		}
		if err == nil && panicked != n/2-1 {
			t.Fatal(panicked)
		}
	}
}
