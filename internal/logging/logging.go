// Package logging owns the process logger used for shim and CLI diagnostics.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

var (
	level  = new(slog.LevelVar)
	logger atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelWarn)
	logger.Store(newLogger(os.Stderr))
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	return logger.Load()
}

// SetLevel changes the minimum level of the process logger.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetOutput redirects the process logger to w, keeping the current level.
func SetOutput(w io.Writer) {
	logger.Store(newLogger(w))
}

// Diagnostics are line-oriented text; terminals get the colored tint handler.
func newLogger(w io.Writer) *slog.Logger {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
