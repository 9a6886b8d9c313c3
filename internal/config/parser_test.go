package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
)

// mockDetector is a test implementation of platform.Detector.
type mockDetector struct {
	info *platform.Info
	err  error
}

func (m *mockDetector) Detect(ctx context.Context) (*platform.Info, error) {
	return m.info, m.err
}

func armLinux() *mockDetector {
	return &mockDetector{info: &platform.Info{OS: "linux", Arch: platform.ArchARM64, ArchRaw: "aarch64"}}
}

func TestParser_ParseString_Full(t *testing.T) {
	luaCode := `
		zoop = {
			root = "/srv/scoop",
			global_root = "/opt/scoop",
			arch = "32bit",
			log_level = "DEBUG",
			log_file = "/var/log/zoop.log",
			download = {
				timeout = 90,
				retries = -1,
				user_agent = "zoop-test",
				proxy = "http://proxy.local:3128",
			},
		}
	`
	cfg, err := NewParser(nil).ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	want := &Config{
		Root:       "/srv/scoop",
		GlobalRoot: "/opt/scoop",
		Arch:       platform.Arch32,
		LogLevel:   "debug",
		LogFile:    "/var/log/zoop.log",
		Download: DownloadConfig{
			Timeout:   90 * time.Second,
			Retries:   -1,
			UserAgent: "zoop-test",
			Proxy:     "http://proxy.local:3128",
		},
	}
	if *cfg != *want {
		t.Errorf("ParseString() = %+v, want %+v", cfg, want)
	}
}

func TestParser_ParseString_Defaults(t *testing.T) {
	cfg, err := NewParser(nil).ParseString(context.Background(), `zoop = {}`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("empty table = %+v, want defaults", cfg)
	}
}

func TestParser_ParseString_Platform(t *testing.T) {
	luaCode := `
		zoop = {
			arch = platform.is_arm64 and "arm64" or nil,
			log_level = platform.when(platform.is_windows, "debug"),
			download = { timeout = "2m30s" },
		}
	`
	cfg, err := NewParser(armLinux()).ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if cfg.Arch != platform.ArchARM64 {
		t.Errorf("Arch = %q, want arm64", cfg.Arch)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, nil conditional should keep default", cfg.LogLevel)
	}
	if cfg.Download.Timeout != 150*time.Second {
		t.Errorf("Timeout = %v", cfg.Download.Timeout)
	}
}

func TestParser_ParseString_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
	}{
		{name: "syntax", code: `zoop = {`, wantMsg: "Lua error"},
		{name: "no table", code: `x = 1`, wantMsg: "missing or invalid 'zoop' table"},
		{name: "root not string", code: `zoop = { root = 5 }`, wantMsg: "invalid root"},
		{name: "relative root", code: `zoop = { root = "scoop" }`, wantMsg: "path must be absolute"},
		{name: "bad arch", code: `zoop = { arch = "x86" }`, wantMsg: "unsupported architecture"},
		{name: "bad level", code: `zoop = { log_level = "loud" }`, wantMsg: "unknown level"},
		{name: "download not table", code: `zoop = { download = "fast" }`, wantMsg: "invalid download"},
		{name: "bad duration", code: `zoop = { download = { timeout = "soon" } }`, wantMsg: "invalid download.timeout"},
		{name: "negative timeout", code: `zoop = { download = { timeout = -1 } }`, wantMsg: "must not be negative"},
		{name: "retries too low", code: `zoop = { download = { retries = -2 } }`, wantMsg: "must be -1 or more"},
		{name: "proxy scheme", code: `zoop = { download = { proxy = "ftp://p:21" } }`, wantMsg: "unsupported scheme"},
		{name: "sandboxed os", code: `os.execute("true") zoop = {}`, wantMsg: "Lua error"},
		{name: "sandboxed require", code: `require("x") zoop = {}`, wantMsg: "Lua error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).ParseString(context.Background(), tt.code)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParser_ParseString_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewParser(nil).ParseString(ctx, `while true do end`)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestParser_ParseString_DetectorError(t *testing.T) {
	p := NewParser(&mockDetector{err: errors.New("no /proc")})
	if _, err := p.ParseString(context.Background(), `zoop = {}`); err == nil {
		t.Error("expected detector error")
	}
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("records path on errors", func(t *testing.T) {
		path := filepath.Join(dir, "bad.lua")
		if err := os.WriteFile(path, []byte(`zoop = 1`), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := NewParser(nil).ParseFile(context.Background(), path)
		var perr *ParseError
		if !errors.As(err, &perr) || perr.Path != path {
			t.Errorf("expected ParseError for %s, got %v", path, err)
		}
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		path := filepath.Join(dir, "big.lua")
		data := "zoop = {}\n--" + strings.Repeat("x", MaxConfigSize)
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := NewParser(nil).ParseFile(context.Background(), path)
		if err == nil || !strings.Contains(err.Error(), "too large") {
			t.Errorf("expected size error, got %v", err)
		}
	})
}

func TestFormatError(t *testing.T) {
	err := &ParseError{Message: "Lua error", Detail: "line 1: boom\nstack traceback:\n\t[G]: ?"}

	if got := FormatError(err, false); got != "Lua error: line 1: boom" {
		t.Errorf("FormatError(false) = %q", got)
	}
	if got := FormatError(err, true); !strings.Contains(got, "stack traceback") {
		t.Errorf("FormatError(true) = %q", got)
	}
	if got := FormatError(errors.New("plain"), false); got != "plain" {
		t.Errorf("FormatError(plain) = %q", got)
	}
}
