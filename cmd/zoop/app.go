package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ZebulonRouseFrantzich/zoop/internal/bucket"
	"github.com/ZebulonRouseFrantzich/zoop/internal/config"
	"github.com/ZebulonRouseFrantzich/zoop/internal/fetch"
	"github.com/ZebulonRouseFrantzich/zoop/internal/install"
	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
	"github.com/ZebulonRouseFrantzich/zoop/internal/logging"
	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
)

// EnvDebug enables debug logging when set to a non-empty value.
const EnvDebug = "ZOOP_DEBUG"

// app carries the state shared by every command: flags, the loaded
// configuration, the layout and the logger.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	debug      bool

	cfgPath string
	cfg     *config.Config
	layout  layout.Layout
	logger  *logging.ZapLogger
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) debugEnabled() bool {
	return a.debug || os.Getenv(EnvDebug) != ""
}

// setup loads the config, builds the logger and resolves the layout.
func (a *app) setup(ctx context.Context) error {
	level := "info"
	if a.debugEnabled() {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: level, Output: a.stderr})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger

	path := a.configPath
	if path == "" {
		if path, err = config.Path(nil); err != nil {
			return err
		}
	}
	a.cfgPath = path
	cfg, err := config.NewParser(platform.NewDetector()).WithLogger(logger).Load(ctx, path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	if !a.debugEnabled() && cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	if cfg.LogFile != "" {
		fileLogger, err := logging.New(logging.Config{Level: level, FilePath: cfg.LogFile, Output: a.stderr})
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		_ = a.logger.Sync()
		a.logger = fileLogger
	} else {
		a.logger.SetLevel(level)
	}

	a.layout, err = layout.New(layout.Options{Root: cfg.Root, GlobalRoot: cfg.GlobalRoot})
	if err != nil {
		return fmt.Errorf("resolve layout: %w", err)
	}
	a.logger.Debug("layout resolved", "layout", a.layout.String(), "config", path)
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// pipeline wires the install pipeline from the configuration.
func (a *app) pipeline() (*install.Pipeline, error) {
	dl := a.cfg.Download
	agent, err := fetch.NewHTTPAgent(fetch.AgentConfig{
		Timeout:   dl.Timeout,
		Retries:   dl.Retries,
		UserAgent: dl.UserAgent,
		Proxy:     dl.Proxy,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create download agent: %w", err)
	}
	return install.New(install.Config{
		Layout:  a.layout,
		Buckets: bucket.NewStore(a.layout),
		Fetcher: fetch.NewManager(a.layout, agent, fetch.WithLogger(a.logger), fetch.WithProgress(a.stderr)),
		Notes:   a.stdout,
		Logger:  a.logger,
	})
}

// formatError renders err for the terminal; config errors lose their Lua
// traceback unless debugging.
func (a *app) formatError(err error) string {
	var perr *config.ParseError
	if errors.As(err, &perr) {
		return config.FormatError(err, a.debugEnabled())
	}
	return err.Error()
}
