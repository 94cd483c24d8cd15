package cli

import (
	"github.com/neoclaw-ai/preopen/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print merged configuration as TOML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.Write(cmd.OutOrStdout(), opts.configPath)
		},
	}
}
