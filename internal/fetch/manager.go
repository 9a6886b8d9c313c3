package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
	"github.com/ZebulonRouseFrantzich/zoop/internal/logging"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
	"github.com/ZebulonRouseFrantzich/zoop/internal/options"
)

// Artifact is one downloaded file in the cache.
type Artifact struct {
	URL string
	// Path is the cache location.
	Path string
	// FileName is the name the artifact takes inside the version directory.
	FileName string
	// Cached is true when no network transfer was needed.
	Cached bool
	// Signature is the cached detached signature, if the manifest declares one.
	Signature string
}

// Manager coordinates downloads, the cache and verification.
type Manager struct {
	layout   layout.Layout
	agent    Agent
	logger   logging.Logger
	progress io.Writer
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = logging.OrNop(l) }
}

// WithProgress renders progress bars on w.
func WithProgress(w io.Writer) Option {
	return func(m *Manager) { m.progress = w }
}

// NewManager creates a download manager over the layout's cache.
func NewManager(l layout.Layout, agent Agent, opts ...Option) *Manager {
	m := &Manager{
		layout: l,
		agent:  agent,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fetch downloads every artifact for eff and verifies it.
func (m *Manager) Fetch(ctx context.Context, eff *manifest.Effective, opts options.InstallOptions) ([]Artifact, error) {
	artifacts, err := m.Download(ctx, eff, opts)
	if err != nil {
		return nil, err
	}
	if err := m.Verify(eff, artifacts, opts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// Download places every artifact of eff in the cache, reusing cached files
// when the options allow it.
func (m *Manager) Download(ctx context.Context, eff *manifest.Effective, opts options.InstallOptions) ([]Artifact, error) {
	if len(eff.URLs) == 0 {
		return nil, ErrNoURL
	}

	artifacts := make([]Artifact, 0, len(eff.URLs))
	for i, rawURL := range eff.URLs {
		a := Artifact{
			URL:      rawURL,
			FileName: URLFileName(rawURL),
			Path:     CachePath(m.layout.Cache(), eff.Name, eff.Version, rawURL),
		}

		cached, err := m.fetchOne(ctx, eff, rawURL, a.Path, opts.UseCache())
		if err != nil {
			return nil, err
		}
		a.Cached = cached

		if sigURL := eff.SignatureFor(i); sigURL != "" {
			a.Signature = CachePath(m.layout.Cache(), eff.Name, eff.Version, sigURL)
			if _, err := m.fetchOne(ctx, eff, sigURL, a.Signature, opts.UseCache()); err != nil {
				return nil, fmt.Errorf("download signature: %w", err)
			}
		}

		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

func (m *Manager) fetchOne(ctx context.Context, eff *manifest.Effective, rawURL, dest string, useCache bool) (bool, error) {
	if useCache && fileExists(dest) {
		m.logger.Debug("using cached artifact", "app", eff.Name, "path", dest)
		return true, nil
	}

	var observers []func(State)
	if m.progress != nil {
		observers = append(observers, ProgressBar(m.progress, URLFileName(rawURL)))
	}
	transfer := NewTransfer(observers...)

	// Each fetch gets its own temporary name; the cache is shared by both
	// scopes and only the final rename publishes the artifact.
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, fmt.Errorf("create cache dir: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.download")
	if err != nil {
		return false, fmt.Errorf("create download file: %w", err)
	}
	tmp := f.Name()
	f.Close()
	req := Request{URL: stripFragment(rawURL), Dest: tmp, Cookies: eff.Cookie}

	m.logger.Info("downloading", "app", eff.Name, "url", req.URL)
	if err := m.agent.Download(ctx, req, transfer); err != nil {
		_ = transfer.Fail(err)
		os.Remove(tmp)
		var dlErr *DownloadError
		if errors.As(err, &dlErr) {
			return false, err
		}
		return false, &DownloadError{URL: req.URL, Err: err}
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = transfer.Fail(err)
		os.Remove(tmp)
		return false, fmt.Errorf("publish cached artifact: %w", err)
	}
	// Agents that never reported a start still have to reach Completed.
	if transfer.State().Phase == PhaseQueued {
		_ = transfer.Start(-1)
	}
	_ = transfer.Complete(dest)
	return false, nil
}

// Verify checks hashes and signatures of downloaded artifacts. Hash checks
// are skipped for nightly versions or when the options ask for it. A failed
// artifact is quarantined.
func (m *Manager) Verify(eff *manifest.Effective, artifacts []Artifact, opts options.InstallOptions) error {
	skipHash := opts.SkipDownloadHashCheck || manifest.IsNightly(eff.Version)
	if skipHash {
		m.logger.Warn("skipping hash verification", "app", eff.Name, "version", eff.Version)
	}

	for i, a := range artifacts {
		if !skipHash {
			declared := eff.HashFor(i)
			if declared == "" {
				return &MissingHashError{URL: a.URL}
			}
			if err := VerifyHash(a.Path, declared); err != nil {
				var mismatch *HashMismatchError
				if errors.As(err, &mismatch) {
					mismatch.Quarantine = quarantine(a.Path, m.logger)
				}
				return err
			}
		}

		if a.Signature != "" {
			if err := m.verifySignature(eff, a); err != nil {
				quarantine(a.Path, m.logger)
				return err
			}
		}
	}
	return nil
}

func (m *Manager) verifySignature(eff *manifest.Effective, a Artifact) error {
	if eff.Bucket == "" {
		m.logger.Warn("signature declared but manifest has no bucket keyring", "app", eff.Name)
		return nil
	}
	keyring, err := KeyringPath(m.layout.BucketDir(eff.Bucket), eff.Name)
	if errors.Is(err, ErrNoKeyring) {
		m.logger.Warn("signature declared but bucket ships no keyring", "app", eff.Name, "bucket", eff.Bucket)
		return nil
	}
	if err := VerifySignature(a.Path, a.Signature, keyring); err != nil {
		return err
	}
	m.logger.Debug("signature verified", "app", eff.Name, "keyring", keyring)
	return nil
}

// quarantine moves a bad artifact to <path>.corrupt and returns the new
// path, or "" when the file could only be deleted.
func quarantine(p string, logger logging.Logger) string {
	dest := p + ".corrupt"
	os.Remove(dest)
	if err := os.Rename(p, dest); err != nil {
		logger.Warn("could not quarantine artifact, removing it", "path", p, "error", err)
		os.Remove(p)
		return ""
	}
	logger.Warn("quarantined artifact", "path", dest)
	return dest
}

var unsafeCacheChars = regexp.MustCompile(`[^\w.\-]+`)

// CachePath returns <cacheDir>/<app>#<version>#<file> for a URL.
func CachePath(cacheDir, app, version, rawURL string) string {
	file := unsafeCacheChars.ReplaceAllString(URLFileName(rawURL), "_")
	return filepath.Join(cacheDir, fmt.Sprintf("%s#%s#%s", app, version, file))
}

// URLFileName returns the file name an artifact is stored under. A fragment
// of the form "#/name.ext" renames the download.
func URLFileName(rawURL string) string {
	if i := strings.Index(rawURL, "#/"); i >= 0 {
		return path.Base(rawURL[i+2:])
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return path.Base(stripFragment(rawURL))
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "download"
	}
	return name
}

func stripFragment(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// fileExists checks if a file exists and is not empty
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
