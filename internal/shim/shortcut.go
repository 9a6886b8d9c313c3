package shim

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
)

// link is a resolved shortcut ready to be written.
type link struct {
	// Path is the shortcut file without extension.
	Path    string
	Name    string
	Target  string
	Args    string
	Icon    string
	WorkDir string
}

// CreateShortcuts writes a start menu entry for each shortcut and returns
// the files written. An unknown start menu location skips shortcuts.
func (m *Manager) CreateShortcuts(shortcuts []manifest.Shortcut, versionDir string) ([]string, error) {
	if len(shortcuts) == 0 {
		return nil, nil
	}
	menu := m.layout.StartMenu(m.global)
	if menu == "" {
		m.logger.Warn("start menu location unknown, skipping shortcuts")
		return nil, nil
	}

	var written []string
	for _, s := range shortcuts {
		rel := filepath.FromSlash(strings.ReplaceAll(s.Target, `\`, "/"))
		if _, err := os.Stat(filepath.Join(versionDir, rel)); err != nil {
			return written, &ShortcutError{Name: s.Name, Err: fmt.Errorf("%s not found in %s", s.Target, versionDir)}
		}

		// The name may contain a subfolder, e.g. "Tools\Editor".
		name := filepath.FromSlash(strings.ReplaceAll(s.Name, `\`, "/"))
		dest, err := filepath.Abs(filepath.Join(menu, name))
		if err != nil || !strings.HasPrefix(dest, filepath.Clean(menu)+string(os.PathSeparator)) {
			return written, &ShortcutError{Name: s.Name, Err: fmt.Errorf("invalid shortcut name")}
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return written, &ShortcutError{Name: s.Name, Err: err}
		}

		target := currentTarget(versionDir, s.Target)
		l := link{
			Path:    dest,
			Name:    filepath.Base(name),
			Target:  target,
			Args:    s.Args,
			WorkDir: filepath.Dir(target),
		}
		if s.Icon != "" {
			l.Icon = currentTarget(versionDir, s.Icon)
		}

		file, err := writeLink(l)
		if err != nil {
			return written, &ShortcutError{Name: s.Name, Err: err}
		}
		written = append(written, file)
		m.logger.Debug("created shortcut", "name", s.Name, "path", file)
	}
	return written, nil
}

// desktopEntry renders a freedesktop.org launcher.
func desktopEntry(l link) string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", l.Name)
	exec := fmt.Sprintf("%q", l.Target)
	if l.Args != "" {
		exec += " " + l.Args
	}
	fmt.Fprintf(&b, "Exec=%s\n", exec)
	fmt.Fprintf(&b, "Path=%s\n", l.WorkDir)
	if l.Icon != "" {
		fmt.Fprintf(&b, "Icon=%s\n", l.Icon)
	}
	b.WriteString("Terminal=false\n")
	b.WriteString("Categories=Scoop;\n")
	return b.String()
}

func writeDesktopEntry(l link) (string, error) {
	path := l.Path + ".desktop"
	if err := writeFileAtomic(path, []byte(desktopEntry(l)), 0755); err != nil {
		return "", err
	}
	return path, nil
}
