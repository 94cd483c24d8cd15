//go:build linux

package intercept

import "golang.org/x/sys/unix"

// OpenNull passes a NULL pathname to openat(2) so the kernel reports the error.
func (UnixSyscalls) OpenNull(flags int, mode uint32) (int, error) {
	dirfd := unix.AT_FDCWD
	r, _, errno := unix.Syscall6(unix.SYS_OPENAT, uintptr(dirfd), 0, uintptr(flags), uintptr(mode), 0, 0)
	if errno != 0 {
		return -1, errno
	}
	return int(r), nil
}
