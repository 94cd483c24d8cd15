// Package intercept implements the replacement open operation: paths under a
// preopened directory are reopened relative to that directory's descriptor,
// everything else goes to the original open primitive untouched.
//
// The package has no knowledge of symbol interposition. The preload adapter in
// cmd/libpreopen supplies the original primitive through Syscalls.
package intercept

import (
	"log/slog"

	"github.com/neoclaw-ai/preopen/internal/logging"
	"github.com/neoclaw-ai/preopen/internal/registry"
	"golang.org/x/sys/unix"
)

// Syscalls is the pair of primitives the interceptor forwards to. Results,
// including errors, are returned to the caller unchanged.
type Syscalls interface {
	// Open is the original, uninterposed open primitive.
	Open(path string, flags int, mode uint32) (int, error)
	// Openat opens path relative to the directory descriptor dirfd.
	Openat(dirfd int, path string, flags int, mode uint32) (int, error)
}

// NullOpener is implemented by Syscalls that can forward a NULL path to the
// original primitive.
type NullOpener interface {
	OpenNull(flags int, mode uint32) (int, error)
}

// Decision is the outcome of resolving a path against the registry.
type Decision struct {
	// Redirect is true when a registered prefix matched.
	Redirect bool
	// Prefix is the matched registry prefix.
	Prefix string
	// DirFD is the descriptor of the matched directory.
	DirFD int
	// Path is what the underlying call receives: the remainder relative to
	// DirFD when redirected, otherwise the original path.
	Path string
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithLogger sets the logger used for lookup and redirect diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(i *Interceptor) {
		if l != nil {
			i.logger = l
		}
	}
}

// Interceptor routes open calls through a registry. It holds no mutable
// state and is safe for concurrent use.
type Interceptor struct {
	reg    *registry.Registry
	sys    Syscalls
	logger *slog.Logger
}

// New returns an Interceptor reading reg and forwarding to sys.
func New(reg *registry.Registry, sys Syscalls, opts ...Option) *Interceptor {
	i := &Interceptor{
		reg:    reg,
		sys:    sys,
		logger: logging.Logger(),
	}
	for _, fn := range opts {
		fn(i)
	}
	return i
}

// Registry returns the registry the interceptor consults.
func (i *Interceptor) Registry() *registry.Registry {
	return i.reg
}

// Resolve reports how path would be opened without opening anything.
func (i *Interceptor) Resolve(path string) Decision {
	e, ok := i.reg.Lookup(path)
	if !ok {
		return Decision{Path: path}
	}

	rel := path[len(e.Prefix):]
	if len(rel) > 0 && rel[0] == '/' {
		rel = rel[1:]
	}
	return Decision{
		Redirect: true,
		Prefix:   e.Prefix,
		DirFD:    e.FD,
		Path:     rel,
	}
}

// Open opens path with the caller's flags and mode. The mode is only passed
// on when flags request file creation, mirroring the variadic convention of
// open(2).
func (i *Interceptor) Open(path string, flags int, mode uint32) (int, error) {
	mode = creationMode(flags, mode)

	d := i.Resolve(path)
	if !d.Redirect {
		i.logger.Debug("open pass-through", "path", path, "flags", flags)
		return i.sys.Open(path, flags, mode)
	}

	i.logger.Debug("open redirected", "path", path, "prefix", d.Prefix, "dirfd", d.DirFD, "rel", d.Path)
	fd, err := i.sys.Openat(d.DirFD, d.Path, flags, mode)
	if err != nil {
		i.logger.Debug("openat failed", "dirfd", d.DirFD, "rel", d.Path, "err", err)
	} else {
		i.logger.Debug("openat succeeded", "dirfd", d.DirFD, "rel", d.Path, "fd", fd)
	}
	return fd, err
}

// OpenNull handles an open call with a NULL path. It never matches the
// registry and is delegated to the original primitive, which decides the
// error. Syscalls without NullOpener get EFAULT, the kernel's answer for a
// NULL pathname.
func (i *Interceptor) OpenNull(flags int, mode uint32) (int, error) {
	mode = creationMode(flags, mode)
	i.logger.Debug("open called with NULL path")
	if n, ok := i.sys.(NullOpener); ok {
		return n.OpenNull(flags, mode)
	}
	return -1, unix.EFAULT
}
