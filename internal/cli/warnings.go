package cli

import (
	"github.com/neoclaw-ai/preopen/internal/config"
	"github.com/neoclaw-ai/preopen/internal/logging"
	"github.com/neoclaw-ai/preopen/internal/registry"
	"github.com/neoclaw-ai/preopen/internal/sandbox"
)

// Emit startup warnings derived from non-fatal config/runtime conditions.
func warnStartupConditions(cfg *config.Config) {
	if cfg == nil {
		return
	}

	if cfg.Sandbox.Enabled && !sandbox.IsSupported() {
		if cfg.Sandbox.BestEffort {
			logging.Logger().Warn("landlock is unavailable on this host; sandbox.best_effort runs commands unconfined")
		} else {
			logging.Logger().Warn("landlock is unavailable on this host; sandboxed runs will fail")
		}
	}
	if n := len(cfg.PreopenList()); n > registry.Capacity {
		logging.Logger().Warn("more preopened directories than the shim registers", "configured", n, "capacity", registry.Capacity)
	}
}
