package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Path returns the config file location: $ZOOP_CONFIG, else
// <user config dir>/zoop/config.lua.
func Path(lookupEnv func(string) (string, bool)) (string, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if p, ok := lookupEnv(EnvConfigPath); ok && p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "zoop", "config.lua"), nil
}

// Load parses the config at path. A missing file yields Default().
func (p *Parser) Load(ctx context.Context, path string) (*Config, error) {
	cfg, err := p.ParseFile(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		p.logger.Debug("no config file, using defaults", "path", path)
		return Default(), nil
	}
	return cfg, err
}
