package testutil_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/zoop/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	for key, want := range map[string]string{
		"SCOOP":        env.Root,
		"SCOOP_GLOBAL": env.GlobalRoot,
		"USERPROFILE":  env.Home,
		"ZOOP_CONFIG":  env.ConfigPath,
	} {
		if got := os.Getenv(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}

	for _, dir := range []string{env.Root, env.GlobalRoot, env.Home, filepath.Dir(env.ConfigPath)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
}

func TestLayout(t *testing.T) {
	l := testutil.Layout(t)

	root := os.Getenv("SCOOP")
	if l.UserRoot() != root {
		t.Errorf("UserRoot = %q, want %q", l.UserRoot(), root)
	}
	if !strings.HasPrefix(l.Shims(true), os.Getenv("SCOOP_GLOBAL")) {
		t.Errorf("global shims %q outside SCOOP_GLOBAL", l.Shims(true))
	}
}
