// Package registry builds the table of preopened directories that the open
// interceptor consults.
//
// A Registry is constructed once from a ':'-separated list of directories and
// is read-only afterwards, so lookups need no locking. Entries keep the order
// of the configuration and the first matching entry wins.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/neoclaw-ai/preopen/internal/logging"
	"golang.org/x/sys/unix"
)

const (
	// EnvVar names the environment variable holding the preopen list.
	EnvVar = "PREOPEN_PATH"
	// Delimiter separates directories in the preopen list.
	Delimiter = ":"
	// Capacity is the maximum number of registered directories.
	Capacity = 10
)

// Entry pairs a path prefix with the descriptor of the directory opened for it.
type Entry struct {
	Prefix string
	FD     int
}

// Skipped records a configured directory that could not be opened.
type Skipped struct {
	Path string
	Err  error
}

// Report describes what happened to each configured directory during Build.
type Report struct {
	Skipped []Skipped
	// Unattempted lists directories after capacity was reached; they were never opened.
	Unattempted []string
}

// DirOpener opens path as a read-only directory and returns its descriptor.
type DirOpener func(path string) (int, error)

// Option configures Build.
type Option func(*options)

type options struct {
	capacity int
	opener   DirOpener
	match    Match
	logger   *slog.Logger
}

// WithOpener replaces the directory opener. Tests use it to avoid the filesystem.
func WithOpener(fn DirOpener) Option {
	return func(o *options) {
		if fn != nil {
			o.opener = fn
		}
	}
}

// WithMatch selects how prefixes are compared against paths.
func WithMatch(m Match) Option {
	return func(o *options) { o.match = m }
}

// WithCapacity overrides the entry limit. Values below one are ignored.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithLogger sets the logger used for population diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Registry is the ordered, immutable table of preopened directories.
type Registry struct {
	entries []Entry
	match   Match
	report  Report
}

// Split tokenizes a preopen list. Empty tokens produced by leading, trailing
// or consecutive delimiters are dropped.
func Split(spec string) []string {
	var tokens []string
	for token := range strings.SplitSeq(spec, Delimiter) {
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// Join renders dirs as a preopen list.
func Join(dirs []string) string {
	return strings.Join(dirs, Delimiter)
}

// FromEnv builds a registry from the EnvVar environment variable. An unset
// variable yields an empty registry.
func FromEnv(opts ...Option) *Registry {
	return Build(os.Getenv(EnvVar), opts...)
}

// Build opens each directory of spec in order until the list is exhausted or
// capacity directories have been registered. Directories that fail to open are
// logged and skipped and do not count toward capacity. Once capacity is
// reached the remaining directories are not opened at all.
func Build(spec string, opts ...Option) *Registry {
	o := options{
		capacity: Capacity,
		opener:   openDir,
		match:    MatchPrefix,
		logger:   logging.Logger(),
	}
	for _, fn := range opts {
		fn(&o)
	}

	r := &Registry{match: o.match}
	tokens := Split(spec)
	o.logger.Debug("building preopen registry", "spec", spec, "candidates", len(tokens), "match", o.match)

	for i, token := range tokens {
		if len(r.entries) >= o.capacity {
			r.report.Unattempted = append(r.report.Unattempted, tokens[i:]...)
			break
		}

		fd, err := o.opener(token)
		if err != nil {
			o.logger.Info("skipping preopen directory", "path", token, "err", err)
			r.report.Skipped = append(r.report.Skipped, Skipped{Path: token, Err: err})
			continue
		}
		o.logger.Debug("opened preopen directory", "path", token, "dirfd", fd)
		r.entries = append(r.entries, Entry{Prefix: token, FD: fd})
	}

	o.logger.Debug("preopen registry ready", "entries", len(r.entries))
	return r
}

// Lookup returns the first entry, in registration order, whose prefix matches
// path. A nil registry matches nothing.
func (r *Registry) Lookup(path string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	for _, e := range r.entries {
		if r.match.matches(e.Prefix, path) {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the registered entries in registration order.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len reports the number of registered entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Match reports the matching mode the registry was built with.
func (r *Registry) Match() Match {
	if r == nil {
		return MatchPrefix
	}
	return r.match
}

// Report returns the outcome of every configured directory that was not registered.
func (r *Registry) Report() Report {
	if r == nil {
		return Report{}
	}
	return r.report
}

// Close releases every directory descriptor. The preload shim never calls it;
// its descriptors live until process exit. Embedding applications and tests
// that build short-lived registries should.
func (r *Registry) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, e := range r.entries {
		if err := unix.Close(e.FD); err != nil {
			errs = append(errs, fmt.Errorf("close %q (fd %d): %w", e.Prefix, e.FD, err))
		}
	}
	r.entries = nil
	return errors.Join(errs...)
}

func openDir(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_DIRECTORY|unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return fd, nil
}
