// Package hook runs a manifest's pre_install and post_install scripts.
//
// Scripts are Lua, executed in a sandboxed VM: the os, io and module
// loading libraries are removed, the install's template variables are
// exposed as globals, and a small fs table offers file operations that
// are confined to the app's version and persist directories.
package hook

import (
	"context"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/zoop/internal/envconfig"
	"github.com/ZebulonRouseFrantzich/zoop/internal/logging"
	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
)

// Stage names a hook point.
type Stage string

const (
	PreInstall  Stage = "pre_install"
	PostInstall Stage = "post_install"
)

// DefaultTimeout bounds one hook script.
const DefaultTimeout = 2 * time.Minute

// HookError reports a failed hook script.
type HookError struct {
	Stage Stage
	App   string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook for %s: %v", e.Stage, e.App, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// Runner executes hook scripts.
type Runner struct {
	platform *platform.Info
	timeout  time.Duration
	logger   logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithPlatform exposes info as the read-only platform table.
func WithPlatform(info *platform.Info) Option {
	return func(r *Runner) { r.platform = info }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the logger that receives log() calls from scripts.
func WithLogger(l logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	return r
}

// Run executes the script lines of one stage. The lines are joined and
// run as a single chunk. An empty script is a no-op.
func (r *Runner) Run(ctx context.Context, stage Stage, lines []string, vars envconfig.Vars) error {
	script := strings.TrimSpace(strings.Join(lines, "\n"))
	if script == "" {
		return nil
	}
	app := vars["app"]

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if r.platform != nil {
		if err := platform.InjectPlatformTable(L, r.platform); err != nil {
			return &HookError{Stage: stage, App: app, Err: err}
		}
	}
	for name, value := range vars {
		L.SetGlobal(name, lua.LString(value))
	}
	L.SetGlobal("global", lua.LBool(vars["global"] == "true"))
	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		r.logger.Info(L.CheckString(1), "app", app, "hook", string(stage))
		return 0
	}))

	roots := []string{vars["dir"], vars["persist_dir"]}
	L.SetGlobal("fs", platform.MakeReadOnly(L, newFS(L, roots), "fs"))

	r.logger.Debug("running hook", "app", app, "hook", string(stage))
	if err := L.DoString(script); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &HookError{Stage: stage, App: app, Err: ctxErr}
		}
		return &HookError{Stage: stage, App: app, Err: err}
	}
	return nil
}
