package layout

import (
	"errors"
	"path/filepath"
	"testing"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestNew_Derivation(t *testing.T) {
	home := filepath.Join("home", "alice")
	tests := []struct {
		name       string
		opts       Options
		wantRoot   string
		wantGlobal string
	}{
		{
			name: "defaults from profile",
			opts: Options{
				GOOS:      "windows",
				LookupEnv: envMap(map[string]string{EnvUserProfile: home, EnvProgramData: "pd"}),
			},
			wantRoot:   filepath.Join(home, "scoop"),
			wantGlobal: filepath.Join("pd", "scoop"),
		},
		{
			name: "env overrides",
			opts: Options{
				GOOS: "windows",
				LookupEnv: envMap(map[string]string{
					EnvUserProfile: home,
					EnvRoot:        "custom",
					EnvGlobalRoot:  "shared",
				}),
			},
			wantRoot:   "custom",
			wantGlobal: "shared",
		},
		{
			name: "explicit options beat env",
			opts: Options{
				Root:       "fromcfg",
				GlobalRoot: "fromcfg-global",
				GOOS:       "linux",
				LookupEnv:  envMap(map[string]string{EnvRoot: "env"}),
			},
			wantRoot:   "fromcfg",
			wantGlobal: "fromcfg-global",
		},
		{
			name: "HOME fallback off windows",
			opts: Options{
				GOOS:      "linux",
				LookupEnv: envMap(map[string]string{EnvHome: home}),
			},
			wantRoot:   filepath.Join(home, "scoop"),
			wantGlobal: "/opt/scoop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.opts)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := l.UserRoot(); got != tt.wantRoot {
				t.Errorf("UserRoot() = %q, want %q", got, tt.wantRoot)
			}
			if got := l.GlobalRoot(); got != tt.wantGlobal {
				t.Errorf("GlobalRoot() = %q, want %q", got, tt.wantGlobal)
			}
		})
	}
}

func TestNew_NoHome(t *testing.T) {
	_, err := New(Options{GOOS: "windows", LookupEnv: envMap(nil)})
	if !errors.Is(err, ErrNoHome) {
		t.Fatalf("New() error = %v, want ErrNoHome", err)
	}
}

func TestLayoutPaths(t *testing.T) {
	user := filepath.Join("u", "scoop")
	global := filepath.Join("g", "scoop")
	l, err := New(Options{
		Root:       user,
		GlobalRoot: global,
		GOOS:       "windows",
		LookupEnv: envMap(map[string]string{
			EnvLocalAppData: "lad",
			EnvAppData:      "ad",
			EnvUserProfile:  "prof",
		}),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"version dir", l.VersionDir("git", "2.44.0", false), filepath.Join(user, "apps", "git", "2.44.0")},
		{"global current", l.CurrentDir("git", true), filepath.Join(global, "apps", "git", "current")},
		{"bucket manifest", l.BucketManifest("main", "git"), filepath.Join(user, "buckets", "main", "bucket", "git.json")},
		{"cache shared", l.Cache(), filepath.Join(user, "cache")},
		{"global shims", l.Shims(true), filepath.Join(global, "shims")},
		{"persist", l.PersistDir("git", false), filepath.Join(user, "persist", "git")},
		{"modules", l.Modules(false), filepath.Join(user, "modules")},
		{"old root", l.OldRoot(), filepath.Join("lad", "scoop")},
		{"config", l.ConfigPath(), filepath.Join("prof", ".config", "scoop", "config.json")},
		{"start menu", l.StartMenu(false), filepath.Join("ad", "Microsoft", "Windows", "Start Menu", "Programs", "Scoop Apps")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
