package envconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/envstore"
	"github.com/ZebulonRouseFrantzich/zoop/internal/logging"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
)

// PathVar is the variable env_add_path entries are appended to.
const PathVar = "PATH"

// Configurator writes manifest environment settings to a guarded store.
type Configurator struct {
	store   *envstore.Locked
	sep     byte
	listSep string
	logger  logging.Logger
}

// New creates a Configurator using the host separators.
func New(store *envstore.Locked, logger logging.Logger) *Configurator {
	return &Configurator{
		store:   store,
		sep:     os.PathSeparator,
		listSep: string(os.PathListSeparator),
		logger:  logging.OrNop(logger),
	}
}

// WithSeparators overrides the path and list separators.
func (c *Configurator) WithSeparators(sep byte, listSep string) *Configurator {
	c.sep = sep
	c.listSep = listSep
	return c
}

// ApplyEnvSet expands and normalizes each value and writes it. It returns
// the names written.
func (c *Configurator) ApplyEnvSet(ctx context.Context, pairs []manifest.EnvVar, vars Vars) ([]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	var written []string
	err := c.store.Update(ctx, func(s envstore.Store) error {
		for _, p := range pairs {
			value := vars.Expand(p.Value)
			// URLs keep their "//".
			if !strings.Contains(value, "://") {
				value = Normalize(value, c.sep)
			}
			c.logger.Debug("setting environment variable", "name", p.Name, "value", value)
			if err := s.Set(p.Name, value); err != nil {
				return wrapWrite(p.Name, err)
			}
			written = append(written, p.Name)
		}
		return nil
	})
	return written, err
}

// ApplyEnvAddPath joins each entry to currentDir, normalizes it and appends
// it to PATH unless the exact string is already present. The variable is
// written once. It returns the entries added.
func (c *Configurator) ApplyEnvAddPath(ctx context.Context, paths []string, currentDir string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	var added []string
	err := c.store.Update(ctx, func(s envstore.Store) error {
		cur, _, err := s.Get(PathVar)
		if err != nil {
			return wrapWrite(PathVar, err)
		}
		var parts []string
		if cur != "" {
			parts = strings.Split(cur, c.listSep)
		}
		present := make(map[string]bool, len(parts))
		for _, p := range parts {
			present[p] = true
		}

		for _, entry := range paths {
			full := Normalize(c.join(currentDir, entry), c.sep)
			if present[full] {
				continue
			}
			present[full] = true
			parts = append(parts, full)
			added = append(added, full)
		}
		if len(added) == 0 {
			return nil
		}
		c.logger.Info("adding to PATH", "entries", added)
		if err := s.Set(PathVar, strings.Join(parts, c.listSep)); err != nil {
			return wrapWrite(PathVar, err)
		}
		return nil
	})
	return added, err
}

func (c *Configurator) join(dir, entry string) string {
	if entry == "" || entry == "." {
		return dir
	}
	if filepath.IsAbs(entry) {
		return entry
	}
	return dir + string(c.sep) + entry
}

func wrapWrite(name string, err error) error {
	var we *envstore.WriteError
	if errors.As(err, &we) {
		return err
	}
	return &envstore.WriteError{Name: name, Err: err}
}
