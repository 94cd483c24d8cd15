//go:build linux && cgo

package main

/*
#include <errno.h>
#include <fcntl.h>
#include <stdlib.h>
#include <sys/types.h>

static int preopen_call_open(const char *path, int flags, mode_t mode, int *err) {
	errno = 0;
	int fd = open(path, flags, mode);
	*err = fd < 0 ? errno : 0;
	return fd;
}
*/
import "C"

import (
	"syscall"
	"unsafe"
)

// callOpen calls the exported open symbol the way a C caller does, passing
// mode through the variadic slot, and reports the resulting errno.
func callOpen(path string, flags int, mode uint32) (int, syscall.Errno) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	var errno C.int
	fd := C.preopen_call_open(cpath, C.int(flags), C.mode_t(mode), &errno)
	return int(fd), syscall.Errno(errno)
}

// callOpenNull is callOpen with a NULL path.
func callOpenNull(flags int) (int, syscall.Errno) {
	var errno C.int
	fd := C.preopen_call_open(nil, C.int(flags), 0, &errno)
	return int(fd), syscall.Errno(errno)
}
