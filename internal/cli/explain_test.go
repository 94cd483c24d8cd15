package cli

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestExplainArgs(t *testing.T) {
	createTestHome(t)
	dir := preopenedDir(t, "x")

	out, err := execute(t, "", "explain", "--dir", dir, filepath.Join(dir, "data.txt"), "/etc/passwd")
	if err != nil {
		t.Fatalf("execute explain: %v", err)
	}
	if !strings.Contains(out, `-> openat(`+dir) || !strings.Contains(out, `"data.txt")`) {
		t.Fatalf("expected redirect decision, got %q", out)
	}
	if !strings.Contains(out, `/etc/passwd -> open("/etc/passwd") pass-through`) {
		t.Fatalf("expected pass-through decision, got %q", out)
	}
}

func TestExplainReadsStdinWhenNotTerminal(t *testing.T) {
	createTestHome(t)
	dir := preopenedDir(t, "x")
	stdin := filepath.Join(dir, "a/b") + "\n\n/tmp/other\nquit\n/never\n"

	out, err := execute(t, stdin, "explain", "--dir", dir)
	if err != nil {
		t.Fatalf("execute explain: %v", err)
	}
	if !strings.Contains(out, `"a/b")`) {
		t.Fatalf("expected redirect for stdin path, got %q", out)
	}
	if !strings.Contains(out, "/tmp/other -> open") {
		t.Fatalf("expected pass-through for stdin path, got %q", out)
	}
	if strings.Contains(out, "/never") {
		t.Fatalf("expected loop to stop at quit, got %q", out)
	}
}
