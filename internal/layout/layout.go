// Package layout derives every on-disk location zoop touches from a small
// set of roots. A Layout is computed once at startup and passed by value;
// nothing mutates it afterwards.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Environment variables consulted when deriving roots.
const (
	EnvRoot         = "SCOOP"
	EnvGlobalRoot   = "SCOOP_GLOBAL"
	EnvUserProfile  = "USERPROFILE"
	EnvProgramData  = "ProgramData"
	EnvLocalAppData = "LocalAppData"
	EnvAppData      = "APPDATA"
	EnvHome         = "HOME"
)

// ErrNoHome is returned when neither an explicit root nor a home directory is known.
var ErrNoHome = errors.New("cannot determine user root: set SCOOP or USERPROFILE")

// Options carries explicit overrides, normally from the user config file.
// Empty fields fall back to the environment.
type Options struct {
	Root       string
	GlobalRoot string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// GOOS defaults to runtime.GOOS.
	GOOS string
}

// Layout is the immutable set of paths for one zoop installation.
type Layout struct {
	root            string
	globalRoot      string
	oldRoot         string
	configPath      string
	startMenu       string
	globalStartMenu string
}

// New resolves the layout from options and environment.
func New(opts Options) (Layout, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	home := get(EnvUserProfile)
	if home == "" {
		home = get(EnvHome)
	}

	root := firstNonEmpty(opts.Root, get(EnvRoot))
	if root == "" {
		if home == "" {
			return Layout{}, ErrNoHome
		}
		root = filepath.Join(home, "scoop")
	}

	globalRoot := firstNonEmpty(opts.GlobalRoot, get(EnvGlobalRoot))
	if globalRoot == "" {
		if pd := get(EnvProgramData); pd != "" {
			globalRoot = filepath.Join(pd, "scoop")
		} else if goos == "windows" {
			globalRoot = `C:\ProgramData\scoop`
		} else {
			globalRoot = "/opt/scoop"
		}
	}

	l := Layout{
		root:       filepath.Clean(root),
		globalRoot: filepath.Clean(globalRoot),
	}

	if lad := get(EnvLocalAppData); lad != "" {
		l.oldRoot = filepath.Join(lad, "scoop")
	}
	if home != "" {
		l.configPath = filepath.Join(home, ".config", "scoop", "config.json")
	}

	if goos == "windows" {
		if ad := get(EnvAppData); ad != "" {
			l.startMenu = filepath.Join(ad, "Microsoft", "Windows", "Start Menu", "Programs", "Scoop Apps")
		}
		if pd := get(EnvProgramData); pd != "" {
			l.globalStartMenu = filepath.Join(pd, "Microsoft", "Windows", "Start Menu", "Programs", "Scoop Apps")
		}
	} else if home != "" {
		l.startMenu = filepath.Join(home, ".local", "share", "applications", "scoop-apps")
		l.globalStartMenu = filepath.Join("/usr", "local", "share", "applications", "scoop-apps")
	}

	return l, nil
}

// Root returns the user or global root.
func (l Layout) Root(global bool) string {
	if global {
		return l.globalRoot
	}
	return l.root
}

// UserRoot returns the per-user root.
func (l Layout) UserRoot() string { return l.root }

// GlobalRoot returns the machine-wide root.
func (l Layout) GlobalRoot() string { return l.globalRoot }

// OldRoot returns the legacy LocalAppData root, or "".
func (l Layout) OldRoot() string { return l.oldRoot }

// ConfigPath returns the scoop-compatible config.json location, or "".
func (l Layout) ConfigPath() string { return l.configPath }

// Apps returns <root>/apps.
func (l Layout) Apps(global bool) string {
	return filepath.Join(l.Root(global), "apps")
}

// AppDir returns <root>/apps/<app>.
func (l Layout) AppDir(app string, global bool) string {
	return filepath.Join(l.Apps(global), app)
}

// VersionDir returns <root>/apps/<app>/<version>.
func (l Layout) VersionDir(app, version string, global bool) string {
	return filepath.Join(l.AppDir(app, global), version)
}

// CurrentDir returns <root>/apps/<app>/current.
func (l Layout) CurrentDir(app string, global bool) string {
	return filepath.Join(l.AppDir(app, global), "current")
}

// Buckets returns <root>/buckets. Buckets are always per-user.
func (l Layout) Buckets() string {
	return filepath.Join(l.root, "buckets")
}

// BucketDir returns <root>/buckets/<bucket>.
func (l Layout) BucketDir(bucket string) string {
	return filepath.Join(l.Buckets(), bucket)
}

// BucketManifest returns <root>/buckets/<bucket>/bucket/<app>.json.
func (l Layout) BucketManifest(bucket, app string) string {
	return filepath.Join(l.BucketDir(bucket), "bucket", app+".json")
}

// Cache returns <root>/cache. The download cache is shared by both scopes.
func (l Layout) Cache() string {
	return filepath.Join(l.root, "cache")
}

// Shims returns <root>/shims.
func (l Layout) Shims(global bool) string {
	return filepath.Join(l.Root(global), "shims")
}

// Persist returns <root>/persist.
func (l Layout) Persist(global bool) string {
	return filepath.Join(l.Root(global), "persist")
}

// PersistDir returns <root>/persist/<app>.
func (l Layout) PersistDir(app string, global bool) string {
	return filepath.Join(l.Persist(global), app)
}

// Modules returns <root>/modules.
func (l Layout) Modules(global bool) string {
	return filepath.Join(l.Root(global), "modules")
}

// Journal returns <root>/journal, where install journals are written.
func (l Layout) Journal() string {
	return filepath.Join(l.root, "journal")
}

// Locks returns the directory holding lock files for the given scope.
func (l Layout) Locks(global bool) string {
	return filepath.Join(l.Root(global), "locks")
}

// EnvFile returns the file-backed environment store used off Windows.
func (l Layout) EnvFile(global bool) string {
	return filepath.Join(l.Root(global), "env.json")
}

// StartMenu returns the shortcut directory for the scope, or "" when unknown.
func (l Layout) StartMenu(global bool) string {
	if global {
		return l.globalStartMenu
	}
	return l.startMenu
}

// String summarizes the layout for debug logging.
func (l Layout) String() string {
	return fmt.Sprintf("root=%s global=%s", l.root, l.globalRoot)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
