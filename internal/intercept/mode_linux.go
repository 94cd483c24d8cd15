//go:build linux

package intercept

import "golang.org/x/sys/unix"

// creationMode returns mode when flags create a file (O_CREAT or O_TMPFILE)
// and zero otherwise.
func creationMode(flags int, mode uint32) uint32 {
	if flags&unix.O_CREAT != 0 || flags&unix.O_TMPFILE == unix.O_TMPFILE {
		return mode
	}
	return 0
}
