package osthread

import (
	"runtime"
	"testing"
)

func TestID_lockedThreadStable(t *testing.T) {
	out := make(chan [2]int, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		a := ID()
		runtime.Gosched()
		out <- [2]int{a, ID()}
	}()
	ids := <-out
	if ids[0] != ids[1] {
		t.Fatal(ids)
	}
	if runtime.GOOS == "linux" && ids[0] <= 0 {
		t.Fatal(ids)
	}
	if runtime.GOOS != "linux" && ids[0] != -1 {
		t.Fatal(ids)
	}
}
