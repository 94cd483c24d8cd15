//go:build linux && cgo

package main

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestErrnoOf(t *testing.T) {
	if got := errnoOf(syscall.ENOENT); got != syscall.ENOENT {
		t.Fatalf("expected ENOENT, got %v", got)
	}
	if got := errnoOf(fmt.Errorf("openat: %w", syscall.EACCES)); got != syscall.EACCES {
		t.Fatalf("expected wrapped EACCES, got %v", got)
	}
	if got := errnoOf(errors.New("opaque")); got != syscall.EIO {
		t.Fatalf("expected EIO for non-errno error, got %v", got)
	}
}

func TestLibcOpenReportsErrno(t *testing.T) {
	if _, err := bindLibc(); err != nil {
		t.Fatalf("bind libc open: %v", err)
	}
	fd, err := libc{}.Open("/nonexistent/preopen/test", syscall.O_RDONLY, 0)
	if fd != -1 || !errors.Is(err, syscall.ENOENT) {
		t.Fatalf("expected (-1, ENOENT), got (%d, %v)", fd, err)
	}
}
