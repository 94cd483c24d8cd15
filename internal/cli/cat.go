package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/neoclaw-ai/preopen/internal/intercept"
	"github.com/neoclaw-ai/preopen/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func newCatCmd(opts *rootOptions) *cobra.Command {
	var dirs []string

	cmd := &cobra.Command{
		Use:   "cat FILE...",
		Short: "Print files, opening them through the interceptor in-process",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			in := intercept.New(reg, intercept.UnixSyscalls{}, intercept.WithLogger(logging.Logger()))

			for _, path := range args {
				if err := catFile(in, path, cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return nil
		},
	}

	addDirFlag(cmd, &dirs)
	return cmd
}

func catFile(in *intercept.Interceptor, path string, out io.Writer) error {
	fd, err := in.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return &os.PathError{Op: "open", Path: path, Err: err}
	}
	f := os.NewFile(uintptr(fd), path)
	defer f.Close()

	if _, err := io.Copy(out, f); err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	return nil
}
