package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpand_HomeShortcut(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("user home dir: %v", err)
	}

	got, err := Expand("~/.tabula/cache")
	if err != nil {
		t.Fatalf("expand path: %v", err)
	}

	want := filepath.Join(home, ".tabula", "cache")
	if got != want {
		t.Fatalf("path mismatch: got %q want %q", got, want)
	}
}

func TestExpand_EnvVar(t *testing.T) {
	t.Setenv("TABULA_PATH_TEST", "/tmp/tabula-path")

	got, err := Expand("$TABULA_PATH_TEST/cache")
	if err != nil {
		t.Fatalf("expand path: %v", err)
	}

	want := filepath.Clean("/tmp/tabula-path/cache")
	if got != want {
		t.Fatalf("path mismatch: got %q want %q", got, want)
	}
}

func TestExpand_HomeEnvTilde(t *testing.T) {
	t.Setenv("HOME", "~")

	got, err := Expand("~/.tabula/cache")
	if err != nil {
		t.Fatalf("expand path with HOME=~: %v", err)
	}
	if got == "" {
		t.Fatal("expanded path is empty")
	}
	if got[0] == '~' {
		t.Fatalf("path not expanded: %q", got)
	}
}

func TestResolve(t *testing.T) {
	base := t.TempDir()

	got, err := Resolve("data/rows.csv", base)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := filepath.Join(base, "data", "rows.csv"); got != want {
		t.Fatalf("path mismatch: got %q want %q", got, want)
	}

	got, err = Resolve("/abs/rows.csv", base)
	if err != nil {
		t.Fatalf("resolve absolute: %v", err)
	}
	if got != "/abs/rows.csv" {
		t.Fatalf("absolute path changed: %q", got)
	}

	got, err = Resolve("rows.csv", "")
	if err != nil {
		t.Fatalf("resolve without base: %v", err)
	}
	if got != "rows.csv" {
		t.Fatalf("relative path changed: %q", got)
	}

	if _, err := Resolve("  ", base); err == nil {
		t.Fatal("expected error for empty path")
	}
}
