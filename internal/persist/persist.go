// Package persist keeps user data outside the version directory so it
// survives upgrades, and links PowerShell modules into the modules dir.
package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
	"github.com/ZebulonRouseFrantzich/zoop/internal/logging"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
)

// Error reports a persist entry or module that could not be linked.
type Error struct {
	Entry string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Entry, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Linker links persisted data for one scope.
type Linker struct {
	layout layout.Layout
	global bool
	logger logging.Logger
}

// New creates a Linker.
func New(l layout.Layout, global bool, logger logging.Logger) *Linker {
	return &Linker{layout: l, global: global, logger: logging.OrNop(logger)}
}

// Apply links every persist entry of app from versionDir into the persist
// directory and returns the paths it created.
//
// Data already in the persist directory wins: the freshly extracted copy
// is renamed to <name>.original. Otherwise extracted data is moved into
// the persist directory. When neither exists an empty directory is made.
func (p *Linker) Apply(app, versionDir string, entries []manifest.PersistEntry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	root := p.layout.PersistDir(app, p.global)
	var created []string

	for _, e := range entries {
		src, err := within(versionDir, e.Source)
		if err != nil {
			return created, &Error{Entry: e.Source, Err: err}
		}
		dst, err := within(root, e.Target)
		if err != nil {
			return created, &Error{Entry: e.Target, Err: err}
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return created, &Error{Entry: e.Source, Err: err}
		}

		_, dstErr := os.Lstat(dst)
		_, srcErr := os.Lstat(src)
		switch {
		case dstErr == nil:
			if srcErr == nil {
				if err := os.Rename(src, src+".original"); err != nil {
					return created, &Error{Entry: e.Source, Err: err}
				}
				created = append(created, src+".original")
			}
		case srcErr == nil:
			if err := os.Rename(src, dst); err != nil {
				return created, &Error{Entry: e.Source, Err: fmt.Errorf("move into persist dir: %w", err)}
			}
			created = append(created, dst)
		default:
			if err := os.MkdirAll(dst, 0755); err != nil {
				return created, &Error{Entry: e.Source, Err: err}
			}
			created = append(created, dst)
		}

		if err := os.MkdirAll(filepath.Dir(src), 0755); err != nil {
			return created, &Error{Entry: e.Source, Err: err}
		}
		if err := linkPath(dst, src); err != nil {
			return created, &Error{Entry: e.Source, Err: err}
		}
		created = append(created, src)
		p.logger.Debug("persisted", "app", app, "source", src, "target", dst)
	}
	return created, nil
}

// LinkModule links <modules>/<name> to versionDir.
func (p *Linker) LinkModule(mod *manifest.PSModule, versionDir string) (string, error) {
	if mod == nil {
		return "", nil
	}
	name := strings.TrimSpace(mod.Name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", &Error{Entry: "psmodule", Err: fmt.Errorf("invalid module name %q", mod.Name)}
	}

	dir := p.layout.Modules(p.global)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &Error{Entry: "psmodule", Err: err}
	}
	dst := filepath.Join(dir, name)
	if fi, err := os.Lstat(dst); err == nil {
		if fi.Mode()&(os.ModeSymlink|os.ModeIrregular) == 0 {
			return "", &Error{Entry: "psmodule", Err: fmt.Errorf("%s exists and is not a link", dst)}
		}
		if err := os.Remove(dst); err != nil {
			return "", &Error{Entry: "psmodule", Err: err}
		}
	}
	if err := linkPath(versionDir, dst); err != nil {
		return "", &Error{Entry: "psmodule", Err: err}
	}
	p.logger.Debug("linked module", "name", name, "path", dst)
	return dst, nil
}

// within joins rel onto root and rejects results outside root.
func within(root, rel string) (string, error) {
	rel = filepath.FromSlash(strings.ReplaceAll(rel, `\`, "/"))
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("invalid path %q", rel)
	}
	p := filepath.Join(root, rel)
	if p == root || !strings.HasPrefix(p, filepath.Clean(root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes %s", rel, root)
	}
	return p, nil
}
