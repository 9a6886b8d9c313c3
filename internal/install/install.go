// Package install runs the install pipeline for one app: resolve the
// effective manifest, skip when already installed, install dependencies,
// download and verify artifacts, unpack them into a version directory,
// wire environment, shims and shortcuts, then persist the install record
// and repoint the app's current pointer.
//
// The pipeline only moves forward. A failure after side effects began is
// reported as a StageError naming the journal that lists what was done;
// nothing is rolled back.
package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/zoop/internal/appref"
	"github.com/ZebulonRouseFrantzich/zoop/internal/envconfig"
	"github.com/ZebulonRouseFrantzich/zoop/internal/envstore"
	"github.com/ZebulonRouseFrantzich/zoop/internal/fetch"
	"github.com/ZebulonRouseFrantzich/zoop/internal/hook"
	"github.com/ZebulonRouseFrantzich/zoop/internal/installer"
	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
	"github.com/ZebulonRouseFrantzich/zoop/internal/logging"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
	"github.com/ZebulonRouseFrantzich/zoop/internal/options"
	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
	"github.com/ZebulonRouseFrantzich/zoop/internal/state"
	"github.com/ZebulonRouseFrantzich/zoop/internal/transaction"
)

// Fetcher downloads and verifies artifacts.
type Fetcher interface {
	Download(ctx context.Context, eff *manifest.Effective, opts options.InstallOptions) ([]fetch.Artifact, error)
	Verify(eff *manifest.Effective, artifacts []fetch.Artifact, opts options.InstallOptions) error
}

// Buckets resolves manifests by name, bucket and version.
type Buckets interface {
	ManifestSource
	Versioned(ctx context.Context, bucket, app, want string) (*manifest.Manifest, error)
	Remote(ctx context.Context, bucket string) (string, error)
}

// EnvFactory returns the environment configurator for a scope.
type EnvFactory func(global bool) (*envconfig.Configurator, error)

// DefaultEnv opens the platform environment store for each scope.
func DefaultEnv(l layout.Layout, logger logging.Logger) EnvFactory {
	return func(global bool) (*envconfig.Configurator, error) {
		store, err := envstore.Open(l, global)
		if err != nil {
			return nil, fmt.Errorf("open environment store: %w", err)
		}
		return envconfig.New(envstore.NewLocked(store, l.Locks(global), "env"), logger), nil
	}
}

// Config wires the pipeline's collaborators. Layout, Buckets and Fetcher
// are required.
type Config struct {
	Layout    layout.Layout
	Buckets   Buckets
	Fetcher   Fetcher
	Detector  platform.Detector
	Env       EnvFactory
	Hooks     *hook.Runner
	Installer *installer.Executor
	// Notes receives post-install notes and suggestions; nil discards them.
	Notes    io.Writer
	Logger   logging.Logger
	Now      func() time.Time
	GOOS     string
	Observer func(app string, s State)
}

// Pipeline installs apps.
type Pipeline struct {
	cfg    Config
	logger logging.Logger
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Buckets == nil {
		return nil, errors.New("install: bucket store is required")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("install: fetcher is required")
	}
	cfg.Logger = logging.OrNop(cfg.Logger)
	if cfg.Detector == nil {
		cfg.Detector = platform.NewDetector()
	}
	if cfg.Env == nil {
		cfg.Env = DefaultEnv(cfg.Layout, cfg.Logger)
	}
	if cfg.Hooks == nil {
		cfg.Hooks = hook.NewRunner(hook.WithLogger(cfg.Logger))
	}
	if cfg.Installer == nil {
		cfg.Installer = installer.New(cfg.Hooks, installer.WithLogger(cfg.Logger))
	}
	if cfg.Notes == nil {
		cfg.Notes = io.Discard
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{cfg: cfg, logger: cfg.Logger}, nil
}

// Result describes one app's pass through the pipeline.
type Result struct {
	App          string
	Version      string
	Bucket       string
	Arch         platform.Arch
	Scope        string
	State        State
	Journal      string
	Dependencies []*Result
	Artifacts    []fetch.Artifact
	Shims        []string
	Record       *state.Record
}

// Skipped reports whether the run ended without installing.
func (r *Result) Skipped() bool {
	return r.State == StateSkip
}

func (p *Pipeline) advance(r *Result, to State) {
	if !canTransition(r.State, to) {
		panic(fmt.Sprintf("install: illegal transition %s -> %s", r.State, to))
	}
	r.State = to
	if p.cfg.Observer != nil {
		p.cfg.Observer(r.App, to)
	}
}

// Resolve loads the manifest a command-line reference names: a manifest
// file path, app, bucket/app or app@version.
func (p *Pipeline) Resolve(ctx context.Context, spec string) (*manifest.Manifest, error) {
	spec = strings.TrimSpace(spec)
	if strings.EqualFold(filepath.Ext(spec), ".json") {
		if _, err := os.Stat(spec); err == nil {
			return manifest.Load(spec, "")
		}
	}

	ref, err := appref.Parse(spec)
	if err != nil {
		return nil, err
	}
	if ref.Bucket != "" {
		return p.cfg.Buckets.Lookup(ref.Bucket, ref.App)
	}
	m, err := p.cfg.Buckets.Find(ref.App)
	if err != nil || ref.Version == "" || m.Version == ref.Version {
		return m, err
	}
	bucket, _ := m.Bucket()
	return p.cfg.Buckets.Versioned(ctx, bucket, ref.App, ref.Version)
}

// Install resolves spec and installs it.
func (p *Pipeline) Install(ctx context.Context, spec string, opts options.InstallOptions) (*Result, error) {
	m, err := p.Resolve(ctx, spec)
	if err != nil {
		return nil, err
	}
	return p.InstallManifest(ctx, m, opts)
}

// InstallManifest installs m and, unless disabled, its dependencies.
func (p *Pipeline) InstallManifest(ctx context.Context, m *manifest.Manifest, opts options.InstallOptions) (*Result, error) {
	if opts.UpdateHpAndBuckets {
		p.logger.Warn("bucket updates are not performed; using local buckets")
	}
	if opts.CheckCurrentVersionIsLatest {
		p.logger.Warn("self-update checks are not performed")
	}
	return p.install(ctx, m, opts, true)
}

func (p *Pipeline) hostArch(ctx context.Context, opts options.InstallOptions) (platform.Arch, error) {
	if opts.Arch != "" {
		return opts.Arch, nil
	}
	info, err := p.cfg.Detector.Detect(ctx)
	if err != nil {
		return "", fmt.Errorf("detect architecture: %w", err)
	}
	return opts.ResolveArch(info.Arch), nil
}

func (p *Pipeline) install(ctx context.Context, m *manifest.Manifest, opts options.InstallOptions, withDepends bool) (*Result, error) {
	l := p.cfg.Layout
	name, _ := m.Name()
	res := &Result{App: name, Version: m.Version, Scope: opts.Scope()}
	fail := func(err error) (*Result, error) {
		res.State = StateFailed
		if p.cfg.Observer != nil {
			p.cfg.Observer(res.App, StateFailed)
		}
		return res, err
	}

	// 1. Resolve the effective manifest for the target architecture
	arch, err := p.hostArch(ctx, opts)
	if err != nil {
		return fail(err)
	}
	eff, err := m.Effective(arch)
	if err != nil {
		return fail(err)
	}
	res.Version, res.Bucket, res.Arch = eff.Version, eff.Bucket, arch
	p.advance(res, StateManifestResolved)

	// 2. Skip when this version is already installed in this scope
	skip, _, err := state.CheckBeforeInstall(l, name, eff.Version, opts.Global, opts.ForceInstallOverride)
	if err != nil {
		return fail(err)
	}
	p.advance(res, StateIdempotencyChecked)
	if skip {
		p.logger.Info("already installed", "app", name, "version", eff.Version, "scope", res.Scope)
		p.advance(res, StateSkip)
		return res, nil
	}

	// 3. Plan dependencies before touching anything
	var deps []*manifest.Manifest
	if withDepends && !opts.NoAutoDownloadDepends {
		if deps, err = ResolveDepends(p.cfg.Buckets, m); err != nil {
			return fail(err)
		}
	}

	// 4. Serialize installs of the same app across processes
	lock, err := transaction.AcquireLock(ctx, l.Locks(opts.Global), "install-"+name)
	if err != nil {
		if errors.Is(err, transaction.ErrLockExists) {
			return fail(fmt.Errorf("%s is being installed by another process: %w", name, err))
		}
		return fail(fmt.Errorf("acquire install lock: %w", err))
	}
	defer func() { _ = lock.Release() }()

	r := &run{
		p:       p,
		res:     res,
		m:       m,
		eff:     eff,
		opts:    opts,
		journal: transaction.New(name, eff.Version, res.Scope, p.cfg.Now()),
		dir:     l.VersionDir(name, eff.Version, opts.Global),
		vars: envconfig.NewVars(l, envconfig.Context{
			App:     name,
			Version: eff.Version,
			Global:  opts.Global,
		}),
	}
	if err := r.execute(ctx, deps); err != nil {
		return fail(err)
	}
	return res, nil
}
