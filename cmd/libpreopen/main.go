//go:build linux && cgo

// Command libpreopen is the preload adapter. Build it with
//
//	go build -buildmode=c-shared -o libpreopen.so ./cmd/libpreopen
//
// and load it with LD_PRELOAD so its open symbol shadows the C library's.
// All decisions are made by internal/intercept; this package only converts
// between C and Go and binds the next open in the symbol chain.
package main

/*
#cgo CFLAGS: -U_FORTIFY_SOURCE -D_GNU_SOURCE
#cgo LDFLAGS: -ldl

#include <stdlib.h>
#include <sys/types.h>

int preopen_bind_next_open(void);
const char *preopen_dlerror(void);
int preopen_next_open(const char *path, int flags, mode_t mode, int *err);
int preopen_openat(int dirfd, const char *path, int flags, mode_t mode, int *err);
*/
import "C"

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/neoclaw-ai/preopen/internal/intercept"
	"github.com/neoclaw-ai/preopen/internal/shim"
)

func main() {}

// The Go runtime finishes package initialization before it serves any call
// into an exported function, so the registry is complete before the first
// interposed open returns.
func init() {
	shim.Start(shim.BinderFunc(bindLibc))
}

func bindLibc() (intercept.Syscalls, error) {
	if C.preopen_bind_next_open() != 0 {
		return nil, fmt.Errorf("dlsym(RTLD_NEXT, \"open\"): %s", C.GoString(C.preopen_dlerror()))
	}
	return libc{}, nil
}

// libc forwards to the next open in the symbol chain and to the C library's
// openat, so errno conventions match an unshimmed process.
type libc struct{}

func (libc) Open(path string, flags int, mode uint32) (int, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	var errno C.int
	fd := C.preopen_next_open(cpath, C.int(flags), C.mode_t(mode), &errno)
	return result(fd, errno)
}

func (libc) Openat(dirfd int, path string, flags int, mode uint32) (int, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	var errno C.int
	fd := C.preopen_openat(C.int(dirfd), cpath, C.int(flags), C.mode_t(mode), &errno)
	return result(fd, errno)
}

func (libc) OpenNull(flags int, mode uint32) (int, error) {
	var errno C.int
	fd := C.preopen_next_open(nil, C.int(flags), C.mode_t(mode), &errno)
	return result(fd, errno)
}

func result(fd, errno C.int) (int, error) {
	if fd < 0 {
		return -1, syscall.Errno(errno)
	}
	return int(fd), nil
}

//export preopenOpen
func preopenOpen(path *C.char, flags C.int, mode C.mode_t, errOut *C.int) C.int {
	in := shim.Start(shim.BinderFunc(bindLibc))

	var (
		fd  int
		err error
	)
	if path == nil {
		fd, err = in.OpenNull(int(flags), uint32(mode))
	} else {
		fd, err = in.Open(C.GoString(path), int(flags), uint32(mode))
	}
	if err != nil {
		*errOut = C.int(errnoOf(err))
		return -1
	}
	return C.int(fd)
}

func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}
