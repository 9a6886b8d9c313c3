package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
)

// Config is the user configuration.
type Config struct {
	// Root and GlobalRoot override SCOOP and SCOOP_GLOBAL.
	Root       string
	GlobalRoot string
	// Arch forces an architecture; empty means the host's.
	Arch     platform.Arch
	LogLevel string
	LogFile  string
	Download DownloadConfig
}

// DownloadConfig tunes the HTTP agent.
type DownloadConfig struct {
	Timeout time.Duration
	// Retries below zero disable retrying.
	Retries   int
	UserAgent string
	Proxy     string
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Download: DownloadConfig{
			Timeout: 60 * time.Second,
			Retries: 3,
		},
	}
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks field values and expands ~ in paths.
func (c *Config) Validate() error {
	for _, p := range []struct {
		field string
		value *string
	}{
		{luaFieldRoot, &c.Root},
		{luaFieldGlobal, &c.GlobalRoot},
		{luaFieldLogFile, &c.LogFile},
	} {
		if *p.value == "" {
			continue
		}
		expanded, err := expandHome(*p.value)
		if err != nil {
			return &ValidationError{Field: p.field, Message: err.Error()}
		}
		if !filepath.IsAbs(expanded) {
			return &ValidationError{Field: p.field, Message: fmt.Sprintf("path must be absolute: %s", *p.value)}
		}
		*p.value = filepath.Clean(expanded)
	}

	if c.Arch != "" && !c.Arch.IsValid() {
		return &ValidationError{Field: luaFieldArch, Message: (&platform.UnsupportedArchError{Arch: string(c.Arch)}).Error()}
	}
	if c.LogLevel != "" && !logLevels[strings.ToLower(c.LogLevel)] {
		return &ValidationError{Field: luaFieldLogLevel, Message: fmt.Sprintf("unknown level %q (use debug, info, warn or error)", c.LogLevel)}
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	if c.Download.Timeout < 0 {
		return &ValidationError{Field: "download.timeout", Message: "must not be negative"}
	}
	if c.Download.Retries < -1 {
		return &ValidationError{Field: "download.retries", Message: "must be -1 or more"}
	}
	if c.Download.Proxy != "" {
		u, err := url.Parse(c.Download.Proxy)
		if err != nil {
			return &ValidationError{Field: "download.proxy", Message: err.Error()}
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return &ValidationError{Field: "download.proxy", Message: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
		}
		if u.Host == "" {
			return &ValidationError{Field: "download.proxy", Message: "missing host"}
		}
	}
	return nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}
