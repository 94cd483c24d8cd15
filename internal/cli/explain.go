package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/neoclaw-ai/preopen/internal/intercept"
	"github.com/neoclaw-ai/preopen/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const explainPrompt = "path> "

func newExplainCmd(opts *rootOptions) *cobra.Command {
	var dirs []string

	cmd := &cobra.Command{
		Use:   "explain [PATH...]",
		Short: "Show how open calls for each path would be resolved",
		Long: "Show how open calls for each path would be resolved. Without arguments, " +
			"paths are read interactively on a terminal or line by line from stdin.",
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
			out := cmd.OutOrStdout()

			if len(args) > 0 {
				for _, path := range args {
					if err := writeDecision(out, path, in.Resolve(path)); err != nil {
						return err
					}
				}
				return nil
			}
			return runExplainLoop(cmd.Context(), in, cmd.InOrStdin(), out)
		},
	}

	addDirFlag(cmd, &dirs)
	return cmd
}

func writeDecision(w io.Writer, path string, d intercept.Decision) error {
	if !d.Redirect {
		_, err := fmt.Fprintf(w, "%s -> open(%q) pass-through\n", path, d.Path)
		return err
	}
	_, err := fmt.Fprintf(w, "%s -> openat(%s [dirfd %d], %q)\n", path, d.Prefix, d.DirFD, d.Path)
	return err
}

type lineReader interface {
	Read() (string, error)
}

type readlineReader struct {
	rl *readline.Instance
}

func newReadlineReader(in io.Reader, out io.Writer) (*readlineReader, error) {
	stdin, ok := in.(io.ReadCloser)
	if !ok {
		return nil, fmt.Errorf("stdin is not read-closer")
	}
	inFile, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(inFile.Fd())) {
		return nil, fmt.Errorf("stdin is not terminal")
	}
	outFile, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(outFile.Fd())) {
		return nil, fmt.Errorf("stdout is not terminal")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          explainPrompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".preopen_history"),
		HistoryLimit:    200,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           stdin,
		Stdout:          out,
		Stderr:          out,
	})
	if err != nil {
		return nil, err
	}
	return &readlineReader{rl: rl}, nil
}

func (r *readlineReader) Read() (string, error) {
	line, err := r.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return "", io.EOF
		}
		return "", err
	}
	return line, nil
}

func (r *readlineReader) Close() error {
	return r.rl.Close()
}

type scannerReader struct {
	scanner *bufio.Scanner
}

func (r *scannerReader) Read() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func runExplainLoop(ctx context.Context, in *intercept.Interceptor, stdin io.Reader, out io.Writer) error {
	var reader lineReader
	if rl, err := newReadlineReader(stdin, out); err == nil {
		defer rl.Close()
		reader = rl
	} else {
		reader = &scannerReader{scanner: bufio.NewScanner(stdin)}
	}

	for {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		line, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		path := strings.TrimSpace(line)
		switch path {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := writeDecision(out, path, in.Resolve(path)); err != nil {
			return err
		}
	}
}
