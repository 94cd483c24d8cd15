//go:build linux

package sandbox

import (
	"errors"
	"fmt"

	"github.com/landlock-lsm/go-landlock/landlock"
	"golang.org/x/sys/unix"
)

// IsSupported reports whether Landlock is available on Linux.
func IsSupported() bool {
	abi, _, errno := unix.Syscall(
		unix.SYS_LANDLOCK_CREATE_RULESET,
		0,
		0,
		uintptr(unix.LANDLOCK_CREATE_RULESET_VERSION),
	)
	if errno == 0 && abi >= 1 {
		return true
	}
	if errors.Is(errno, unix.ENOSYS) || errors.Is(errno, unix.EOPNOTSUPP) {
		return false
	}
	return false
}

func restrictImpl(p Policy) error {
	if !p.BestEffort && !IsSupported() {
		return ErrUnsupported
	}

	rules := rulesFor(p)
	cfg := landlock.V5
	if p.BestEffort {
		cfg = cfg.BestEffort()
	}
	if err := cfg.RestrictPaths(rules...); err != nil {
		return fmt.Errorf("restrict process with landlock: %w", err)
	}
	return nil
}

func rulesFor(p Policy) []landlock.Rule {
	rw := directories(cleanDirs(append(append([]string{}, p.ReadWrite...), "/dev")))
	ro := directories(cleanDirs(append(append([]string{}, systemReadRoots...), p.ReadOnly...)))

	return []landlock.Rule{
		landlock.RWDirs(rw...).IgnoreIfMissing(),
		landlock.RODirs(ro...).IgnoreIfMissing(),
	}
}
