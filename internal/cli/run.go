package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/shlex"
	"github.com/neoclaw-ai/preopen/internal/config"
	"github.com/neoclaw-ai/preopen/internal/logging"
	"github.com/neoclaw-ai/preopen/internal/registry"
	"github.com/neoclaw-ai/preopen/internal/sandbox"
	"github.com/spf13/cobra"
)

const preloadEnvVar = "LD_PRELOAD"

// Replaced in tests so that run never replaces the test process.
var (
	execFn       = syscall.Exec
	lookPathFn   = exec.LookPath
	restrictFn   = sandbox.Restrict
	executableFn = os.Executable
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		dirs      []string
		library   string
		command   string
		sandboxed bool
	)

	cmd := &cobra.Command{
		Use:   "run [flags] [-- command [args...]]",
		Short: "Exec a command with the preload shim and preopened directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			argv, err := commandArgv(command, args)
			if err != nil {
				return err
			}
			list, err := preopenList(cfg, dirs)
			if err != nil {
				return err
			}
			lib, err := resolveLibrary(library, cfg)
			if err != nil {
				return err
			}
			binary, err := lookPathFn(argv[0])
			if err != nil {
				return fmt.Errorf("find command %q: %w", argv[0], err)
			}

			env := childEnv(os.Environ(), list, lib, cfg)
			logging.Logger().Info("exec with preopen shim", "command", binary, "dirs", list, "library", lib)

			if sandboxed || cfg.Sandbox.Enabled {
				policy := sandbox.Policy{
					ReadWrite:  list,
					ReadOnly:   append([]string{filepath.Dir(lib), filepath.Dir(binary)}, cfg.Sandbox.ReadOnlyDirs...),
					BestEffort: cfg.Sandbox.BestEffort,
				}
				if err := restrictFn(policy); err != nil {
					return err
				}
			}

			if err := execFn(binary, argv, env); err != nil {
				return fmt.Errorf("exec %q: %w", binary, err)
			}
			return nil
		},
	}

	addDirFlag(cmd, &dirs)
	cmd.Flags().StringVar(&library, "lib", "", "Path to libpreopen.so (default: config library, then next to this binary)")
	cmd.Flags().StringVarP(&command, "command", "c", "", "Command line to run, split with shell quoting rules")
	cmd.Flags().BoolVar(&sandboxed, "sandbox", false, "Confine the command with Landlock to the preopened directories")
	// Flags after the command name belong to the command.
	cmd.Flags().SetInterspersed(false)

	return cmd
}

// commandArgv returns the argv for the child from -c or positional args.
func commandArgv(command string, args []string) ([]string, error) {
	if strings.TrimSpace(command) != "" {
		if len(args) > 0 {
			return nil, errors.New("use either -c or positional command arguments, not both")
		}
		argv, err := shlex.Split(command)
		if err != nil {
			return nil, fmt.Errorf("parse command %q: %w", command, err)
		}
		if len(argv) == 0 {
			return nil, errors.New("command is required")
		}
		return argv, nil
	}
	if len(args) == 0 {
		return nil, errors.New("command is required")
	}
	return args, nil
}

// resolveLibrary picks the preload library: flag, then config, then the file
// next to the running binary.
func resolveLibrary(flag string, cfg *config.Config) (string, error) {
	lib := strings.TrimSpace(flag)
	if lib == "" {
		lib = strings.TrimSpace(cfg.Library)
	}
	if lib == "" {
		self, err := executableFn()
		if err != nil {
			return "", fmt.Errorf("resolve executable path: %w", err)
		}
		lib = filepath.Join(filepath.Dir(self), config.LibraryFileName)
	}

	abs, err := filepath.Abs(lib)
	if err != nil {
		return "", fmt.Errorf("resolve library path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("preload library %q: %w", abs, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("preload library %q is a directory", abs)
	}
	return abs, nil
}

// childEnv replaces the preopen variables in environ and puts lib first in LD_PRELOAD.
func childEnv(environ []string, list []string, lib string, cfg *config.Config) []string {
	env := make([]string, 0, len(environ)+4)
	preload := lib
	for _, kv := range environ {
		key, value, _ := strings.Cut(kv, "=")
		switch key {
		case registry.EnvVar, config.EnvPrefix + "_MATCH", config.EnvPrefix + "_DEBUG":
			continue
		case preloadEnvVar:
			if value != "" {
				preload = lib + ":" + value
			}
			continue
		}
		env = append(env, kv)
	}

	env = append(env,
		preloadEnvVar+"="+preload,
		registry.EnvVar+"="+registry.Join(list),
		config.EnvPrefix+"_MATCH="+cfg.MatchMode().String(),
	)
	if cfg.Debug {
		env = append(env, config.EnvPrefix+"_DEBUG=1")
	}
	return env
}
