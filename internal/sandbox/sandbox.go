// Package sandbox confines a process to its preopened directories with
// Landlock before `preopen run` execs the target command.
package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned when confinement is requested on a host without Landlock.
var ErrUnsupported = errors.New("sandbox: landlock is unavailable on this host")

// Policy lists the directories a confined process may use.
type Policy struct {
	// ReadWrite are the preopened directories.
	ReadWrite []string
	// ReadOnly are extra roots the command needs, such as its own binary
	// directory and the preload library directory.
	ReadOnly []string
	// BestEffort degrades to the strongest Landlock ABI the kernel supports,
	// or to no confinement at all, instead of failing.
	BestEffort bool
}

// Restrict applies p to the current process. The restriction is inherited
// across exec and cannot be lifted.
func Restrict(p Policy) error {
	return restrictImpl(p)
}

// systemReadRoots are the read-only roots a dynamically linked command needs.
// /dev is granted read-write separately.
var systemReadRoots = []string{
	"/bin",
	"/sbin",
	"/usr",
	"/lib",
	"/lib64",
	"/etc",
	"/proc",
	"/sys",
	"/run",
}

func cleanDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	seen := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		dir = filepath.Clean(dir)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		out = append(out, dir)
	}
	return out
}

// directories keeps the entries of dirs that currently resolve to directories.
// The registry skips anything else, and a Landlock directory rule on a regular
// file fails the whole ruleset.
func directories(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		out = append(out, dir)
	}
	return out
}
