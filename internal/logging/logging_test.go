package logging

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(slog.LevelWarn)

	SetLevel(slog.LevelWarn)
	Logger().Debug("hidden", "path", "/a")
	if buf.Len() != 0 {
		t.Fatalf("expected debug line to be filtered, got %q", buf.String())
	}

	SetLevel(slog.LevelDebug)
	Logger().Debug("visible", "path", "/a")
	got := buf.String()
	if !strings.Contains(got, "msg=visible") || !strings.Contains(got, "path=/a") {
		t.Fatalf("expected debug line in text format, got %q", got)
	}
}
