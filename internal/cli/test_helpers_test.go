package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neoclaw-ai/preopen/internal/config"
	"github.com/neoclaw-ai/preopen/internal/registry"
)

func createTestHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), ".preopen")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv(config.HomeEnvVar, home)
	t.Setenv(registry.EnvVar, "")
	return home
}

func writeConfig(t *testing.T, home, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(home, config.ConfigFileName), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// preopenedDir creates a directory holding data.txt.
func preopenedDir(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write data: %v", err)
	}
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
