package shell

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/envconfig"
	"github.com/ZebulonRouseFrantzich/zoop/internal/envstore"
)

// GenerateActivationCommand returns the line users add to their rc file.
func GenerateActivationCommand(shell ShellType) (string, error) {
	if err := ValidateShell(shell); err != nil {
		return "", err
	}

	switch shell {
	case ShellBash, ShellZsh:
		return fmt.Sprintf(`eval "$(zoop activate %s)"`, shell), nil
	case ShellFish:
		return fmt.Sprintf("zoop activate %s | source", shell), nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// Environment is what the activation script exports.
type Environment struct {
	// Path entries are prepended to PATH in order.
	Path []string
	Vars map[string]string
}

// Gather merges the shim directories and the stores into one environment.
// Stores are given lowest precedence first; PATH entries from every store
// are kept, other variables are overridden by later stores.
func Gather(shims []string, stores ...envstore.Lister) (Environment, error) {
	env := Environment{Vars: map[string]string{}}
	seen := map[string]bool{}
	addPath := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		env.Path = append(env.Path, p)
	}
	for _, s := range shims {
		addPath(s)
	}

	for _, store := range stores {
		vars, err := store.List()
		if err != nil {
			return Environment{}, fmt.Errorf("list environment: %w", err)
		}
		for name, value := range vars {
			if strings.EqualFold(name, envconfig.PathVar) {
				for _, p := range strings.Split(value, string(os.PathListSeparator)) {
					addPath(p)
				}
				continue
			}
			env.Vars[name] = value
		}
	}
	return env, nil
}

// Script renders the activation script for shell.
func Script(shell ShellType, env Environment) (string, error) {
	if err := ValidateShell(shell); err != nil {
		return "", err
	}

	names := make([]string, 0, len(env.Vars))
	for name := range env.Vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	switch shell {
	case ShellFish:
		if len(env.Path) > 0 {
			b.WriteString("set -gx PATH")
			for _, p := range env.Path {
				b.WriteString(" " + fishQuote(p))
			}
			b.WriteString(" $PATH\n")
		}
		for _, name := range names {
			fmt.Fprintf(&b, "set -gx %s %s\n", name, fishQuote(env.Vars[name]))
		}
		fmt.Fprintf(&b, "set -gx %s 1\n", EnvZoopActive)
	default:
		if len(env.Path) > 0 {
			quoted := make([]string, len(env.Path))
			for i, p := range env.Path {
				quoted[i] = posixQuote(p)
			}
			fmt.Fprintf(&b, "export PATH=%s:\"$PATH\"\n", strings.Join(quoted, ":"))
		}
		for _, name := range names {
			fmt.Fprintf(&b, "export %s=%s\n", name, posixQuote(env.Vars[name]))
		}
		fmt.Fprintf(&b, "export %s=1\n", EnvZoopActive)
	}
	return b.String(), nil
}

func posixQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func fishQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
