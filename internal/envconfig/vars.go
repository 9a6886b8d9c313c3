// Package envconfig applies a manifest's env_set and env_add_path entries
// to the persistent environment.
package envconfig

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
)

// Vars are the template variables available to manifest values, keyed
// without the leading '$'.
type Vars map[string]string

// Context identifies the install the variables describe.
type Context struct {
	App     string
	Version string
	Global  bool
	Command string
}

// NewVars builds the template variables for one install.
func NewVars(l layout.Layout, c Context) Vars {
	dir := l.VersionDir(c.App, c.Version, c.Global)
	cmd := c.Command
	if cmd == "" {
		cmd = "install"
	}
	return Vars{
		"app":          c.App,
		"version":      c.Version,
		"dir":          dir,
		"original_dir": dir,
		"persist_dir":  l.PersistDir(c.App, c.Global),
		"scoopdir":     l.UserRoot(),
		"globaldir":    l.GlobalRoot(),
		"oldscoopdir":  l.OldRoot(),
		"modulesdir":   l.Modules(c.Global),
		"cachedir":     l.Cache(),
		"bucketsdir":   l.Buckets(),
		"cfgpath":      l.ConfigPath(),
		"global":       strconv.FormatBool(c.Global),
		"cmd":          cmd,
	}
}

var varPattern = regexp.MustCompile(`\$(?:\{([A-Za-z_][A-Za-z0-9_]*)\}|([A-Za-z_][A-Za-z0-9_]*))`)

// Expand substitutes $name and ${name}. Unknown names are left as written
// so literal dollar signs survive.
func (v Vars) Expand(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := varPattern.FindStringSubmatch(m)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		if val, ok := v[strings.ToLower(name)]; ok {
			return val
		}
		return m
	})
}

// Normalize converts both slash styles to sep and collapses repeated
// separators. A leading UNC prefix (\\server) is kept when sep is '\'.
func Normalize(value string, sep byte) string {
	if value == "" {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))

	i := 0
	if sep == '\\' && len(value) >= 2 && isSep(value[0]) && isSep(value[1]) {
		b.WriteString(`\\`)
		i = 2
		for i < len(value) && isSep(value[i]) {
			i++
		}
	}

	prevSep := false
	for ; i < len(value); i++ {
		c := value[i]
		if isSep(c) {
			if prevSep {
				continue
			}
			b.WriteByte(sep)
			prevSep = true
			continue
		}
		b.WriteByte(c)
		prevSep = false
	}
	return b.String()
}

// NormalizeHost is Normalize with the host separator.
func NormalizeHost(value string) string {
	return Normalize(value, os.PathSeparator)
}

func isSep(c byte) bool {
	return c == '/' || c == '\\'
}
