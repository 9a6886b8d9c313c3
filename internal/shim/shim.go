// Package shim exposes installed executables on the shims directory and
// creates start menu shortcuts for them.
package shim

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
	"github.com/ZebulonRouseFrantzich/zoop/internal/logging"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
)

// ShimError reports a shim that could not be created.
type ShimError struct {
	Alias string
	Err   error
}

func (e *ShimError) Error() string {
	return fmt.Sprintf("create shim %s: %v", e.Alias, e.Err)
}

func (e *ShimError) Unwrap() error {
	return e.Err
}

// ShortcutError reports a shortcut that could not be created.
type ShortcutError struct {
	Name string
	Err  error
}

func (e *ShortcutError) Error() string {
	return fmt.Sprintf("create shortcut %s: %v", e.Name, e.Err)
}

func (e *ShortcutError) Unwrap() error {
	return e.Err
}

// Options configures a Manager.
type Options struct {
	Global bool
	// GOOS selects the launcher style; defaults to runtime.GOOS.
	GOOS   string
	Logger logging.Logger
}

// Manager writes shims and shortcuts for one scope.
type Manager struct {
	layout layout.Layout
	global bool
	goos   string
	logger logging.Logger
}

// New creates a Manager.
func New(l layout.Layout, opts Options) *Manager {
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	return &Manager{
		layout: l,
		global: opts.Global,
		goos:   goos,
		logger: logging.OrNop(opts.Logger),
	}
}

// currentTarget maps a path inside versionDir to the same path under the
// app's current pointer, so shims survive version changes.
func currentTarget(versionDir, rel string) string {
	rel = filepath.FromSlash(strings.ReplaceAll(rel, `\`, "/"))
	return filepath.Join(filepath.Dir(versionDir), "current", rel)
}

// CreateShims writes a launcher for every bin entry and returns the files
// written. Existing shims with the same alias are replaced.
func (m *Manager) CreateShims(bins []manifest.BinEntry, versionDir string) ([]string, error) {
	dir := m.layout.Shims(m.global)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create shims dir: %w", err)
	}

	var written []string
	for _, b := range bins {
		if b.Alias == "" || strings.ContainsAny(b.Alias, `/\:`) {
			return written, &ShimError{Alias: b.Alias, Err: fmt.Errorf("invalid shim name")}
		}
		rel := filepath.FromSlash(strings.ReplaceAll(b.Path, `\`, "/"))
		if _, err := os.Stat(filepath.Join(versionDir, rel)); err != nil {
			return written, &ShimError{Alias: b.Alias, Err: fmt.Errorf("%s not found in %s", b.Path, versionDir)}
		}

		target := currentTarget(versionDir, b.Path)
		files, err := m.writeShim(dir, b.Alias, target, b.Args)
		written = append(written, files...)
		if err != nil {
			return written, &ShimError{Alias: b.Alias, Err: err}
		}
		m.logger.Debug("created shim", "alias", b.Alias, "target", target)
	}
	return written, nil
}

func (m *Manager) writeShim(dir, alias, target, args string) ([]string, error) {
	var written []string
	write := func(name, content string, mode os.FileMode) error {
		p := filepath.Join(dir, name)
		if err := writeFileAtomic(p, []byte(content), mode); err != nil {
			return err
		}
		written = append(written, p)
		return nil
	}

	// Written verbatim, not Go-quoted: Windows paths keep single backslashes.
	descriptor := fmt.Sprintf("path = \"%s\"\n", target)
	if args != "" {
		descriptor += fmt.Sprintf("args = %s\n", args)
	}
	if err := write(alias+".shim", descriptor, 0644); err != nil {
		return written, err
	}

	if m.goos == "windows" {
		if err := write(alias+".cmd", cmdLauncher(target, args), 0644); err != nil {
			return written, err
		}
	}
	if err := write(alias, shLauncher(target, args), 0755); err != nil {
		return written, err
	}
	return written, nil
}

func cmdLauncher(target, args string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@rem %s\r\n", target)
	switch strings.ToLower(filepath.Ext(target)) {
	case ".ps1":
		fmt.Fprintf(&b, "@powershell -noprofile -ex unrestricted -file \"%s\" %s %%*\r\n", target, args)
	case ".jar":
		fmt.Fprintf(&b, "@java -jar \"%s\" %s %%*\r\n", target, args)
	default:
		fmt.Fprintf(&b, "@\"%s\" %s %%*\r\n", target, args)
	}
	return b.String()
}

func shLauncher(target, args string) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "# %s\n", target)
	quoted := shellQuote(target)
	switch strings.ToLower(filepath.Ext(target)) {
	case ".ps1":
		fmt.Fprintf(&b, "exec pwsh -noprofile -file %s %s \"$@\"\n", quoted, args)
	case ".jar":
		fmt.Fprintf(&b, "exec java -jar %s %s \"$@\"\n", quoted, args)
	default:
		fmt.Fprintf(&b, "exec %s %s \"$@\"\n", quoted, args)
	}
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// RemoveShims deletes every launcher for the given aliases.
func (m *Manager) RemoveShims(aliases []string) error {
	dir := m.layout.Shims(m.global)
	for _, alias := range aliases {
		for _, name := range []string{alias, alias + ".shim", alias + ".cmd"} {
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove shim %s: %w", name, err)
			}
		}
	}
	return nil
}

// Resolve returns the target of a shim by alias, reading its descriptor.
func (m *Manager) Resolve(alias string) (string, error) {
	data, err := os.ReadFile(filepath.Join(m.layout.Shims(m.global), alias+".shim"))
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != "path" {
			continue
		}
		value = strings.TrimSpace(value)
		return strings.Trim(value, `"`), nil
	}
	return "", fmt.Errorf("shim %s has no path", alias)
}

// List returns the aliases present in the shims directory.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.layout.Shims(m.global))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if name := e.Name(); strings.HasSuffix(name, ".shim") {
			out = append(out, strings.TrimSuffix(name, ".shim"))
		}
	}
	sort.Strings(out)
	return out, nil
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return err
	}
	if err := os.Chmod(tmp, mode); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
