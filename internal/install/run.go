package install

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/zoop/internal/envconfig"
	"github.com/ZebulonRouseFrantzich/zoop/internal/envstore"
	"github.com/ZebulonRouseFrantzich/zoop/internal/extract"
	"github.com/ZebulonRouseFrantzich/zoop/internal/fetch"
	"github.com/ZebulonRouseFrantzich/zoop/internal/hook"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
	"github.com/ZebulonRouseFrantzich/zoop/internal/options"
	"github.com/ZebulonRouseFrantzich/zoop/internal/persist"
	"github.com/ZebulonRouseFrantzich/zoop/internal/shim"
	"github.com/ZebulonRouseFrantzich/zoop/internal/state"
	"github.com/ZebulonRouseFrantzich/zoop/internal/transaction"
)

// run carries one app's install through the side-effecting stages.
type run struct {
	p       *Pipeline
	res     *Result
	m       *manifest.Manifest
	eff     *manifest.Effective
	opts    options.InstallOptions
	journal *transaction.Journal
	dir     string
	// work is where the version is populated: dir itself, or a sibling
	// staging directory when dir already holds an install.
	work    string
	vars    envconfig.Vars
	current State

	artifacts []fetch.Artifact
}

func (r *run) created(paths ...string) {
	r.journal.Created(string(r.current), paths...)
}

func (r *run) changed(items ...string) {
	r.journal.Changed(string(r.current), items...)
}

func (r *run) save() string {
	path, err := r.journal.Save(r.p.cfg.Layout.Journal())
	if err != nil {
		r.p.logger.Warn("failed to save install journal", "app", r.res.App, "error", err)
		return ""
	}
	r.res.Journal = path
	return path
}

// stage runs fn as pipeline state s and records the outcome in the journal.
func (r *run) stage(s State, fn func() error) error {
	r.current = s
	r.journal.Begin(string(s))
	r.p.logger.Debug("install stage", "app", r.res.App, "stage", string(s))
	if err := fn(); err != nil {
		r.journal.Fail(string(s), err)
		return &StageError{App: r.res.App, Stage: s, Journal: r.save(), Err: err}
	}
	r.journal.Complete(string(s))
	r.save()
	r.p.advance(r.res, s)
	return nil
}

func (r *run) execute(ctx context.Context, deps []*manifest.Manifest) error {
	steps := []struct {
		state State
		fn    func(context.Context) error
	}{
		{StateDependenciesResolved, func(ctx context.Context) error { return r.installDepends(ctx, deps) }},
		{StateDownloaded, r.download},
		{StateHashVerified, r.verify},
	}
	for _, step := range steps {
		if err := r.stage(step.state, func() error { return step.fn(ctx) }); err != nil {
			return err
		}
	}

	if r.opts.DownloadOnly() {
		r.journal.Finish()
		r.save()
		r.p.logger.Info("downloaded", "app", r.res.App, "version", r.res.Version)
		r.p.advance(r.res, StateSkip)
		return nil
	}

	steps = []struct {
		state State
		fn    func(context.Context) error
	}{
		{StateExtracted, r.extract},
		{StateEnvironmentConfigured, r.configureEnv},
		{StateShimmedAndShortcut, r.linkShims},
		{StateRecordPersisted, r.persistRecord},
	}
	for _, step := range steps {
		if err := r.stage(step.state, func() error { return step.fn(ctx) }); err != nil {
			r.discardStaging()
			return err
		}
	}

	r.journal.Finish()
	r.save()
	r.p.logger.Info("installed", "app", r.res.App, "version", r.res.Version, "scope", r.res.Scope)
	printNotes(r.p.cfg.Notes, r.p.cfg.Layout, r.eff)
	return nil
}

func (r *run) installDepends(ctx context.Context, deps []*manifest.Manifest) error {
	for _, dep := range deps {
		name, _ := dep.Name()
		r.p.logger.Info("installing dependency", "app", r.res.App, "dependency", name)
		dr, err := r.p.install(ctx, dep, r.opts.ForDependency(), false)
		if dr != nil {
			r.res.Dependencies = append(r.res.Dependencies, dr)
		}
		if err != nil {
			return fmt.Errorf("dependency %s: %w", name, err)
		}
		if dr.State == StateRecordPersisted {
			r.created(r.p.cfg.Layout.VersionDir(dr.App, dr.Version, r.opts.Global))
		}
	}
	return nil
}

func (r *run) download(ctx context.Context) error {
	artifacts, err := r.p.cfg.Fetcher.Download(ctx, r.eff, r.opts)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		if !a.Cached {
			r.created(a.Path)
		}
	}
	r.artifacts = artifacts
	r.res.Artifacts = artifacts
	return nil
}

func (r *run) verify(ctx context.Context) error {
	return r.p.cfg.Fetcher.Verify(r.eff, r.artifacts, r.opts)
}

// extract populates the work directory: artifacts are copied in,
// archives unpacked, then pre_install, the installer directive, persisted
// data and the PowerShell module are applied.
func (r *run) extract(ctx context.Context) error {
	r.work = r.dir
	if _, err := os.Lstat(r.dir); err == nil {
		r.work = stagingDir(r.dir)
		r.p.logger.Info("staging reinstall", "path", r.dir, "staging", r.work)
		if err := os.RemoveAll(r.work); err != nil {
			return fmt.Errorf("clear staging directory: %w", err)
		}
	}
	if err := os.MkdirAll(r.work, 0755); err != nil {
		return fmt.Errorf("create version directory: %w", err)
	}
	r.created(r.work)
	vars := r.workVars()

	var leftovers []string
	for i, a := range r.artifacts {
		dest := filepath.Join(r.work, a.FileName)
		if err := copyFile(a.Path, dest); err != nil {
			return fmt.Errorf("copy %s: %w", a.FileName, err)
		}
		format, err := extract.Detect(dest)
		if err != nil {
			return err
		}
		if !format.IsArchive() {
			leftovers = append(leftovers, a.FileName)
			continue
		}
		if err := extract.ExtractFormat(dest, format, r.work, r.eff.ExtractDirFor(i), r.eff.ExtractToFor(i)); err != nil {
			return err
		}
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("remove unpacked archive: %w", err)
		}
	}

	cfg := r.p.cfg
	if err := cfg.Hooks.Run(ctx, hook.PreInstall, r.eff.PreInstall, vars); err != nil {
		return err
	}
	if _, err := cfg.Installer.Install(ctx, r.eff, r.work, leftovers, vars); err != nil {
		return err
	}

	linker := persist.New(cfg.Layout, r.opts.Global, cfg.Logger)
	persisted, err := linker.Apply(r.res.App, r.work, r.eff.Persist)
	r.created(persisted...)
	if err != nil {
		return err
	}
	module, err := linker.LinkModule(r.eff.PSModule, r.dir)
	if err != nil {
		return err
	}
	if module != "" {
		r.created(module)
	}
	return nil
}

func (r *run) configureEnv(ctx context.Context) error {
	if len(r.eff.EnvAddPath) == 0 && len(r.eff.EnvSet) == 0 {
		return nil
	}
	c, err := r.p.cfg.Env(r.opts.Global)
	if err != nil {
		return err
	}

	added, err := c.ApplyEnvAddPath(ctx, r.eff.EnvAddPath, r.p.cfg.Layout.CurrentDir(r.res.App, r.opts.Global))
	for _, a := range added {
		r.changed(envconfig.PathVar + "+=" + a)
	}
	if err != nil {
		return err
	}
	set, err := c.ApplyEnvSet(ctx, r.eff.EnvSet, r.vars)
	r.changed(set...)
	if err != nil {
		return err
	}

	if len(added)+len(set) > 0 {
		if err := envstore.Broadcast(); err != nil {
			r.p.logger.Warn("failed to broadcast environment change", "error", err)
		}
	}
	return nil
}

func (r *run) linkShims(ctx context.Context) error {
	cfg := r.p.cfg
	sm := shim.New(cfg.Layout, shim.Options{Global: r.opts.Global, GOOS: cfg.GOOS, Logger: cfg.Logger})

	bins := make([]manifest.BinEntry, len(r.eff.Bin))
	for i, b := range r.eff.Bin {
		b.Args = r.vars.Expand(b.Args)
		bins[i] = b
	}
	shims, err := sm.CreateShims(bins, r.work)
	r.created(shims...)
	if err != nil {
		return err
	}
	r.res.Shims = shims

	shortcuts := make([]manifest.Shortcut, len(r.eff.Shortcuts))
	for i, s := range r.eff.Shortcuts {
		s.Args = r.vars.Expand(s.Args)
		shortcuts[i] = s
	}
	links, err := sm.CreateShortcuts(shortcuts, r.work)
	r.created(links...)
	if err != nil {
		return err
	}

	return cfg.Hooks.Run(ctx, hook.PostInstall, r.eff.PostInstall, r.workVars())
}

func (r *run) persistRecord(ctx context.Context) error {
	cfg := r.p.cfg
	rec := &state.Record{
		App:         r.res.App,
		Version:     r.eff.Version,
		Bucket:      r.eff.Bucket,
		Arch:        r.eff.Arch,
		Scope:       r.res.Scope,
		URLs:        r.eff.URLs,
		Options:     r.opts,
		InstalledAt: cfg.Now().UTC(),
		JournalID:   r.journal.ID,
	}
	if rec.Bucket != "" {
		url, err := cfg.Buckets.Remote(ctx, rec.Bucket)
		if err != nil {
			r.p.logger.Debug("bucket has no readable remote", "bucket", rec.Bucket, "error", err)
		} else {
			rec.BucketURL = url
		}
	}

	written, err := state.Write(r.work, rec, r.m.Raw())
	if err != nil {
		r.created(written...)
		return err
	}
	if r.work != r.dir {
		if err := state.Swap(r.work, r.dir); err != nil {
			return err
		}
		r.changed(r.dir)
		r.work = r.dir
	}
	for _, w := range written {
		r.created(filepath.Join(r.dir, filepath.Base(w)))
	}
	current, err := state.Repoint(r.dir)
	if err != nil {
		return err
	}
	r.changed(current)
	r.res.Record = rec
	return nil
}

// stagingDir is the sibling of versionDir a reinstall is built in. It
// shares the app directory so shims resolve through current the same way.
func stagingDir(versionDir string) string {
	return filepath.Join(filepath.Dir(versionDir), fmt.Sprintf(".%s-%d", filepath.Base(versionDir), os.Getpid()))
}

// workVars are the template variables with $dir pointing at the tree being
// populated. Environment values keep the final version directory.
func (r *run) workVars() envconfig.Vars {
	if r.work == "" || r.work == r.dir {
		return r.vars
	}
	vars := make(envconfig.Vars, len(r.vars))
	for k, v := range r.vars {
		vars[k] = v
	}
	vars["dir"] = r.work
	vars["original_dir"] = r.work
	return vars
}

// discardStaging removes an unfinished staging tree; the installed version
// it was meant to replace is untouched.
func (r *run) discardStaging() {
	if r.work == "" || r.work == r.dir {
		return
	}
	if err := os.RemoveAll(r.work); err != nil {
		r.p.logger.Warn("failed to remove staging directory", "path", r.work, "error", err)
		return
	}
	r.p.logger.Debug("removed staging directory", "path", r.work)
}

func copyFile(from, to string) error {
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return err
	}
	out, err := os.Create(to)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
