package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var dirs []string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show which preopened directories the shim would register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			list, err := preopenList(cfg, dirs)
			if err != nil {
				return err
			}

			reg := buildRegistry(cfg, list)
			defer reg.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "STATUS\tDIRECTORY\tDETAIL\n")
			for _, e := range reg.Entries() {
				fmt.Fprintf(w, "registered\t%s\tdirfd %d\n", e.Prefix, e.FD)
			}
			report := reg.Report()
			for _, s := range report.Skipped {
				fmt.Fprintf(w, "skipped\t%s\t%v\n", s.Path, s.Err)
			}
			for _, path := range report.Unattempted {
				fmt.Fprintf(w, "ignored\t%s\tcapacity reached\n", path)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d registered, match mode %s\n", reg.Len(), reg.Match())
			return nil
		},
	}

	addDirFlag(cmd, &dirs)
	return cmd
}
