package intercept

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/neoclaw-ai/preopen/internal/registry"
	"golang.org/x/sys/unix"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type call struct {
	op    string
	dirfd int
	path  string
	flags int
	mode  uint32
}

type fakeSyscalls struct {
	calls []call
	fd    int
	err   error
}

func (f *fakeSyscalls) Open(path string, flags int, mode uint32) (int, error) {
	f.calls = append(f.calls, call{op: "open", dirfd: -1, path: path, flags: flags, mode: mode})
	if f.err != nil {
		return -1, f.err
	}
	return f.fd, nil
}

func (f *fakeSyscalls) Openat(dirfd int, path string, flags int, mode uint32) (int, error) {
	f.calls = append(f.calls, call{op: "openat", dirfd: dirfd, path: path, flags: flags, mode: mode})
	if f.err != nil {
		return -1, f.err
	}
	return f.fd, nil
}

// newRegistry registers each prefix with descriptor 10, 11, ... in order.
func newRegistry(t *testing.T, prefixes string, opts ...registry.Option) *registry.Registry {
	t.Helper()
	next := 10
	opener := func(string) (int, error) {
		fd := next
		next++
		return fd, nil
	}
	opts = append([]registry.Option{registry.WithOpener(opener), registry.WithLogger(quiet)}, opts...)
	return registry.Build(prefixes, opts...)
}

func TestResolve(t *testing.T) {
	in := New(newRegistry(t, "/sandbox/in:/sandbox/out:/a:/ab"), &fakeSyscalls{}, WithLogger(quiet))

	tests := []struct {
		name string
		path string
		want Decision
	}{
		{
			name: "strips prefix and one separator",
			path: "/sandbox/in/data.txt",
			want: Decision{Redirect: true, Prefix: "/sandbox/in", DirFD: 10, Path: "data.txt"},
		},
		{
			name: "second prefix",
			path: "/sandbox/out/x/y",
			want: Decision{Redirect: true, Prefix: "/sandbox/out", DirFD: 11, Path: "x/y"},
		},
		{
			name: "only one separator is stripped",
			path: "/sandbox/in//data.txt",
			want: Decision{Redirect: true, Prefix: "/sandbox/in", DirFD: 10, Path: "/data.txt"},
		},
		{
			name: "exact prefix leaves empty remainder",
			path: "/sandbox/in",
			want: Decision{Redirect: true, Prefix: "/sandbox/in", DirFD: 10, Path: ""},
		},
		{
			name: "literal prefix matches sibling",
			path: "/sandbox/input.txt",
			want: Decision{Redirect: true, Prefix: "/sandbox/in", DirFD: 10, Path: "put.txt"},
		},
		{
			name: "earliest registration wins",
			path: "/ab/file",
			want: Decision{Redirect: true, Prefix: "/a", DirFD: 12, Path: "b/file"},
		},
		{
			name: "no match",
			path: "/etc/passwd",
			want: Decision{Path: "/etc/passwd"},
		},
		{
			name: "relative path never matches absolute prefix",
			path: "sandbox/in/data.txt",
			want: Decision{Path: "sandbox/in/data.txt"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := in.Resolve(tc.path); got != tc.want {
				t.Fatalf("Resolve(%q): got %+v, want %+v", tc.path, got, tc.want)
			}
		})
	}
}

func TestOpen_RedirectsWithCallerFlags(t *testing.T) {
	sys := &fakeSyscalls{fd: 42}
	in := New(newRegistry(t, "/sandbox/in"), sys, WithLogger(quiet))

	fd, err := in.Open("/sandbox/in/new.txt", unix.O_WRONLY|unix.O_CREAT|unix.O_EXCL, 0o600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if fd != 42 {
		t.Fatalf("expected fd 42 returned verbatim, got %d", fd)
	}
	want := call{op: "openat", dirfd: 10, path: "new.txt", flags: unix.O_WRONLY | unix.O_CREAT | unix.O_EXCL, mode: 0o600}
	if len(sys.calls) != 1 || sys.calls[0] != want {
		t.Fatalf("unexpected calls: %+v", sys.calls)
	}
}

func TestOpen_DelegatesWhenNoMatch(t *testing.T) {
	sys := &fakeSyscalls{fd: 5}
	in := New(newRegistry(t, "/sandbox/in"), sys, WithLogger(quiet))

	if _, err := in.Open("/etc/hosts", unix.O_RDONLY, 0); err != nil {
		t.Fatalf("open: %v", err)
	}
	want := call{op: "open", dirfd: -1, path: "/etc/hosts", flags: unix.O_RDONLY}
	if len(sys.calls) != 1 || sys.calls[0] != want {
		t.Fatalf("unexpected calls: %+v", sys.calls)
	}
}

func TestOpen_IgnoresModeWithoutCreate(t *testing.T) {
	sys := &fakeSyscalls{fd: 5}
	in := New(newRegistry(t, "/sandbox/in"), sys, WithLogger(quiet))

	if _, err := in.Open("/sandbox/in/a", unix.O_RDWR, 0o777); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := in.Open("/other", unix.O_RDONLY, 0o777); err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, c := range sys.calls {
		if c.mode != 0 {
			t.Fatalf("expected mode to be dropped without O_CREAT, got %+v", c)
		}
	}
}

func TestOpen_ReturnsErrorsVerbatim(t *testing.T) {
	for _, errno := range []unix.Errno{unix.EACCES, unix.ENOENT, unix.EISDIR} {
		sys := &fakeSyscalls{err: errno}
		in := New(newRegistry(t, "/sandbox/in"), sys, WithLogger(quiet))

		fd, err := in.Open("/sandbox/in/x", unix.O_RDONLY, 0)
		if fd != -1 {
			t.Fatalf("expected fd -1, got %d", fd)
		}
		var got unix.Errno
		if !errors.As(err, &got) || got != errno {
			t.Fatalf("expected errno %v unchanged, got %v", errno, err)
		}

		fd, err = in.Open("/elsewhere", unix.O_RDONLY, 0)
		if fd != -1 || !errors.Is(err, errno) {
			t.Fatalf("expected pass-through errno %v unchanged, got (%d, %v)", errno, fd, err)
		}
	}
}

func TestOpen_EmptyRegistryIsPassThrough(t *testing.T) {
	sys := &fakeSyscalls{fd: 3}
	in := New(newRegistry(t, ""), sys, WithLogger(quiet))

	for _, p := range []string{"/", "/sandbox/in/data.txt", "rel"} {
		if _, err := in.Open(p, unix.O_RDONLY, 0); err != nil {
			t.Fatalf("open %q: %v", p, err)
		}
	}
	for _, c := range sys.calls {
		if c.op != "open" {
			t.Fatalf("expected only pass-through opens, got %+v", c)
		}
	}
}

func TestOpenNull(t *testing.T) {
	t.Run("without NullOpener", func(t *testing.T) {
		sys := &fakeSyscalls{}
		in := New(newRegistry(t, "/"), sys, WithLogger(quiet))
		fd, err := in.OpenNull(unix.O_RDONLY, 0)
		if fd != -1 || !errors.Is(err, unix.EFAULT) {
			t.Fatalf("expected EFAULT, got (%d, %v)", fd, err)
		}
		if len(sys.calls) != 0 {
			t.Fatalf("expected no redirected call for NULL path, got %+v", sys.calls)
		}
	})

	t.Run("with NullOpener", func(t *testing.T) {
		n := &nullSyscalls{}
		in := New(newRegistry(t, "/"), n, WithLogger(quiet))
		if _, err := in.OpenNull(unix.O_RDONLY, 0o644); err != nil {
			t.Fatalf("OpenNull: %v", err)
		}
		if n.nullCalls != 1 || n.lastMode != 0 {
			t.Fatalf("expected one delegated NULL open without mode, got calls=%d mode=%o", n.nullCalls, n.lastMode)
		}
	})
}

type nullSyscalls struct {
	fakeSyscalls
	nullCalls int
	lastMode  uint32
}

func (n *nullSyscalls) OpenNull(_ int, mode uint32) (int, error) {
	n.nullCalls++
	n.lastMode = mode
	return 9, nil
}
