package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestPath(t *testing.T) {
	env := func(vars map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := vars[k]
			return v, ok
		}
	}

	got, err := Path(env(map[string]string{EnvConfigPath: "/etc/zoop.lua"}))
	if err != nil || got != "/etc/zoop.lua" {
		t.Errorf("Path(ZOOP_CONFIG) = %q, %v", got, err)
	}

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	got, err = Path(env(nil))
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if filepath.Base(got) != "config.lua" || filepath.Base(filepath.Dir(got)) != "zoop" {
		t.Errorf("Path() = %q", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := NewParser(nil).Load(context.Background(), filepath.Join(dir, "missing.lua"))
	if err != nil {
		t.Fatalf("Load(missing) error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load(missing) = %+v, want defaults", cfg)
	}

	path := filepath.Join(dir, "config.lua")
	if err := os.WriteFile(path, []byte(`zoop = { download = { retries = 7 } }`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = NewParser(nil).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Download.Retries != 7 {
		t.Errorf("Retries = %d, want 7", cfg.Download.Retries)
	}
}
