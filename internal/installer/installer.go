// Package installer runs a manifest's installer directive against the
// files left in the version directory after extraction: scripted
// installers, Inno Setup and MSI packages, and plain setup executables.
package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/envconfig"
	"github.com/ZebulonRouseFrantzich/zoop/internal/extract"
	"github.com/ZebulonRouseFrantzich/zoop/internal/hook"
	"github.com/ZebulonRouseFrantzich/zoop/internal/logging"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
)

// ScriptStage is the hook stage used for installer.script.
const ScriptStage hook.Stage = "installer"

// ErrInnoUnpackerMissing is returned when an innosetup payload needs
// innounp and it is not on PATH.
var ErrInnoUnpackerMissing = errors.New("innounp not found on PATH")

// InstallerError reports a failed installer run.
type InstallerError struct {
	File   string
	Output string
	Err    error
}

func (e *InstallerError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("installer %s: %v: %s", e.File, e.Err, e.Output)
	}
	return fmt.Sprintf("installer %s: %v", e.File, e.Err)
}

func (e *InstallerError) Unwrap() error {
	return e.Err
}

// CommandFunc runs name with args in dir and returns combined output.
type CommandFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func execCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Executor applies installer directives.
type Executor struct {
	run      CommandFunc
	lookPath func(string) (string, error)
	hooks    *hook.Runner
	logger   logging.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithCommand replaces the process runner.
func WithCommand(fn CommandFunc) Option {
	return func(x *Executor) { x.run = fn }
}

// WithLookPath replaces exec.LookPath.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(x *Executor) { x.lookPath = fn }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(x *Executor) { x.logger = l }
}

// New creates an Executor that runs installer scripts with hooks.
func New(hooks *hook.Runner, opts ...Option) *Executor {
	x := &Executor{run: execCommand, lookPath: exec.LookPath, hooks: hooks}
	for _, opt := range opts {
		opt(x)
	}
	x.logger = logging.OrNop(x.logger)
	if x.hooks == nil {
		x.hooks = hook.NewRunner(hook.WithLogger(x.logger))
	}
	return x
}

// Install runs the directive for eff. files are the artifact names in
// versionDir that extraction left in place. It returns the files it
// removed.
//
// Without a directive, msi payloads are administratively unpacked and
// Inno Setup executables are unpacked with innounp when the manifest sets
// innosetup. Anything else is kept as a plain file.
func (x *Executor) Install(ctx context.Context, eff *manifest.Effective, versionDir string, files []string, vars envconfig.Vars) ([]string, error) {
	inst := eff.Installer
	var removed []string

	if inst != nil && (inst.File != "" || len(inst.Args) > 0) {
		file := vars.Expand(inst.File)
		if file == "" {
			if len(files) == 0 {
				return nil, &InstallerError{File: "", Err: fmt.Errorf("installer has no file and nothing was downloaded")}
			}
			file = files[0]
		}
		path, err := within(versionDir, file)
		if err != nil {
			return nil, &InstallerError{File: file, Err: err}
		}
		args := make([]string, 0, len(inst.Args))
		for _, a := range inst.Args {
			args = append(args, vars.Expand(a))
		}
		if err := x.exec(ctx, versionDir, path, args...); err != nil {
			return nil, err
		}
		if !inst.Keep {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return nil, &InstallerError{File: path, Err: fmt.Errorf("remove installer: %w", err)}
			}
			removed = append(removed, path)
		}
	} else {
		for _, f := range files {
			path := filepath.Join(versionDir, f)
			format, err := extract.Detect(path)
			if err != nil {
				return removed, &InstallerError{File: path, Err: err}
			}
			switch {
			case format == extract.FormatMsi:
				if err := x.unpackMSI(ctx, path, versionDir); err != nil {
					return removed, err
				}
			case format == extract.FormatExe && eff.InnoSetup:
				if err := x.unpackInno(ctx, path, versionDir); err != nil {
					return removed, err
				}
			default:
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return removed, &InstallerError{File: path, Err: err}
			}
			removed = append(removed, path)
		}
	}

	if inst != nil && len(inst.Script) > 0 {
		if err := x.hooks.Run(ctx, ScriptStage, inst.Script.Strings(), vars); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (x *Executor) exec(ctx context.Context, dir, name string, args ...string) error {
	x.logger.Debug("running installer", "file", name, "args", strings.Join(args, " "))
	out, err := x.run(ctx, dir, name, args...)
	if err != nil {
		return &InstallerError{File: name, Output: strings.TrimSpace(string(out)), Err: err}
	}
	return nil
}

// unpackMSI performs an administrative install into dir.
func (x *Executor) unpackMSI(ctx context.Context, path, dir string) error {
	return x.exec(ctx, dir, "msiexec", "/a", path, "/qn", "TARGETDIR="+dir)
}

// unpackInno extracts the {app} files of an Inno Setup executable.
func (x *Executor) unpackInno(ctx context.Context, path, dir string) error {
	bin, err := x.lookPath("innounp")
	if err != nil {
		return &InstallerError{File: path, Err: ErrInnoUnpackerMissing}
	}
	return x.exec(ctx, dir, bin, "-x", "-y", "-d"+dir, "-c{app}", path)
}

func within(root, rel string) (string, error) {
	rel = filepath.FromSlash(strings.ReplaceAll(rel, `\`, "/"))
	p := rel
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, rel)
	}
	p = filepath.Clean(p)
	if !strings.HasPrefix(p, filepath.Clean(root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("installer path %q is outside %s", rel, root)
	}
	return p, nil
}
