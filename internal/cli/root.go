// Package cli wires Cobra subcommands to the preopen registry, interceptor and
// sandbox packages; it is a thin controller with no redirection logic of its own.
package cli

import (
	"log/slog"

	"github.com/neoclaw-ai/preopen/internal/config"
	"github.com/neoclaw-ai/preopen/internal/logging"
	"github.com/neoclaw-ai/preopen/internal/registry"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	verbose    bool
	configPath string
}

// NewRootCmd creates the root command and registers all subcommands.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "preopen",
		Short: "Run programs with file opens redirected to preopened directories",
		// Let main handle fatal error rendering through structured logs.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if opts.verbose {
				logging.SetLevel(slog.LevelDebug)
			} else {
				logging.SetLevel(slog.LevelWarn)
			}
			return nil
		},
	}

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newExplainCmd(opts))
	root.AddCommand(newCatCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd())
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug diagnostics on stderr")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default $PREOPEN_HOME/config.toml)")

	return root
}

// loadConfig loads and validates configuration for a subcommand.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.verbose {
		cfg.Debug = true
	}
	warnStartupConditions(cfg)
	return cfg, nil
}

// preopenList returns the configured directories followed by extra.
func preopenList(cfg *config.Config, extra []string) ([]string, error) {
	list := append(cfg.PreopenList(), extra...)
	if err := config.ValidateDirs(list); err != nil {
		return nil, err
	}
	return list, nil
}

// buildRegistry opens list exactly as the preload shim would.
func buildRegistry(cfg *config.Config, list []string) *registry.Registry {
	return registry.Build(
		registry.Join(list),
		registry.WithMatch(cfg.MatchMode()),
		registry.WithLogger(logging.Logger()),
	)
}

func addDirFlag(cmd *cobra.Command, dirs *[]string) {
	cmd.Flags().StringArrayVarP(dirs, "dir", "d", nil, "Preopened directory (repeatable, appended after configured dirs)")
}
