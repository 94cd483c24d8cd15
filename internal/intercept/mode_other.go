//go:build unix && !linux

package intercept

import "golang.org/x/sys/unix"

func creationMode(flags int, mode uint32) uint32 {
	if flags&unix.O_CREAT != 0 {
		return mode
	}
	return 0
}
