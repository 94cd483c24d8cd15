//go:build unix

package intercept

import "golang.org/x/sys/unix"

// UnixSyscalls forwards to the kernel directly through golang.org/x/sys/unix.
// It backs in-process use such as the preopen CLI; the preload adapter uses
// libc instead so that the next interposed open in the chain is honored.
type UnixSyscalls struct{}

func (UnixSyscalls) Open(path string, flags int, mode uint32) (int, error) {
	return unix.Open(path, flags, mode)
}

func (UnixSyscalls) Openat(dirfd int, path string, flags int, mode uint32) (int, error) {
	return unix.Openat(dirfd, path, flags, mode)
}
