// Package testutil provides utilities for testing zoop in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
)

// Env describes the isolated directories created by SetupTestEnv.
type Env struct {
	Root       string
	GlobalRoot string
	Home       string
	ConfigPath string
}

// SetupTestEnv points every variable zoop reads at a fresh temp
// directory so tests never touch a real installation. Cleanup is handled
// by t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := Env{
		Root:       filepath.Join(tmpDir, "scoop"),
		GlobalRoot: filepath.Join(tmpDir, "scoop-global"),
		Home:       filepath.Join(tmpDir, "home"),
		ConfigPath: filepath.Join(tmpDir, "config", "config.lua"),
	}

	t.Setenv("SCOOP", env.Root)
	t.Setenv("SCOOP_GLOBAL", env.GlobalRoot)
	t.Setenv("HOME", env.Home)
	t.Setenv("USERPROFILE", env.Home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("ZOOP_CONFIG", env.ConfigPath)
	t.Setenv("ZOOP_DEBUG", "")

	for _, dir := range []string{env.Root, env.GlobalRoot, env.Home, filepath.Dir(env.ConfigPath)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return env
}

// Layout sets up an isolated environment and resolves a layout from it.
func Layout(t *testing.T) layout.Layout {
	t.Helper()

	SetupTestEnv(t)
	l, err := layout.New(layout.Options{})
	if err != nil {
		t.Fatalf("layout.New: %v", err)
	}
	return l
}
