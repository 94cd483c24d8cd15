// Package shim runs the one-time startup phase of the preload library: it
// binds the original open primitive, builds the preopen registry from the
// environment, and publishes the resulting Interceptor.
//
// Everything happens eagerly inside Start, guarded by a sync.Once, so no open
// call can observe a partially built registry or an unbound fallback.
package shim

import (
	"log/slog"
	"os"
	"sync"

	"github.com/neoclaw-ai/preopen/internal/config"
	"github.com/neoclaw-ai/preopen/internal/intercept"
	"github.com/neoclaw-ai/preopen/internal/logging"
	"github.com/neoclaw-ai/preopen/internal/registry"
)

// Binder resolves the original open primitive and the relative-open
// counterpart the interceptor forwards to.
type Binder interface {
	Bind() (intercept.Syscalls, error)
}

// BinderFunc adapts a function to Binder.
type BinderFunc func() (intercept.Syscalls, error)

// Bind calls f.
func (f BinderFunc) Bind() (intercept.Syscalls, error) { return f() }

// exit terminates the process when binding fails. Tests replace it.
var exit = os.Exit

var (
	once    sync.Once
	current *intercept.Interceptor
)

// Start performs the startup phase on first call and returns the process
// Interceptor. Later calls return the same Interceptor without side effects.
// Failure to bind the original primitive is fatal: it is logged and the
// process exits with status 1.
func Start(b Binder, opts ...registry.Option) *intercept.Interceptor {
	once.Do(func() {
		current = start(b, opts)
	})
	return current
}

// Current returns the Interceptor published by Start, or nil before Start.
func Current() *intercept.Interceptor {
	return current
}

func start(b Binder, opts []registry.Option) *intercept.Interceptor {
	logger := logging.Logger()

	// Nothing here logs above Info while binding succeeds: the host's stderr
	// stays untouched unless PREOPEN_DEBUG is set.
	cfg, err := config.LoadEnv()
	if err != nil {
		cfg = config.PathOnly()
		logger.Info("preopen settings unreadable, using defaults", "err", err)
	}
	if cfg.Debug {
		logging.SetLevel(slog.LevelDebug)
	}
	if err := cfg.Validate(); err != nil {
		logger.Info("invalid preopen config", "err", err)
	}

	logger.Debug("initializing preopen shim", "pid", os.Getpid())
	sys, err := b.Bind()
	if err != nil || sys == nil {
		logger.Error("resolve original open", "err", err)
		exit(1)
		return nil
	}

	opts = append([]registry.Option{
		registry.WithMatch(cfg.MatchMode()),
		registry.WithLogger(logger),
	}, opts...)
	reg := registry.Build(cfg.Path, opts...)
	logger.Debug("preopen shim ready", "entries", reg.Len())

	return intercept.New(reg, sys, intercept.WithLogger(logger))
}
