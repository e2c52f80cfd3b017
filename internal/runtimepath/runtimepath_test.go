package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got == "" {
		t.Fatal("Dir() returned empty path")
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := fmt.Sprintf("/tmp/starry-runtime-%d", os.Getuid())
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestResolveSocketPath_Priority(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)
	t.Setenv("STARRY_SOCKET", "")

	got, err := ResolveSocketPath("")
	if err != nil {
		t.Fatalf("ResolveSocketPath() error: %v", err)
	}
	if want := filepath.Join(td, SocketName); got != want {
		t.Fatalf("default = %q, want %q", got, want)
	}

	t.Setenv("STARRY_SOCKET", "/tmp/env.sock")
	if got, _ := ResolveSocketPath(""); got != "/tmp/env.sock" {
		t.Fatalf("env = %q", got)
	}
	if got, _ := ResolveSocketPath("/tmp/flag.sock"); got != "/tmp/flag.sock" {
		t.Fatalf("explicit = %q", got)
	}
}
