//go:build !linux

package osthread

func id() int { return -1 }
