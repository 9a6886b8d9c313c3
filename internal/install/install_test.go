package install

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/zoop/internal/bucket"
	"github.com/ZebulonRouseFrantzich/zoop/internal/envconfig"
	"github.com/ZebulonRouseFrantzich/zoop/internal/envstore"
	"github.com/ZebulonRouseFrantzich/zoop/internal/fetch"
	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
	"github.com/ZebulonRouseFrantzich/zoop/internal/options"
	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
	"github.com/ZebulonRouseFrantzich/zoop/internal/shim"
	"github.com/ZebulonRouseFrantzich/zoop/internal/state"
	"github.com/ZebulonRouseFrantzich/zoop/internal/transaction"
)

type fixture struct {
	t        *testing.T
	layout   layout.Layout
	server   *httptest.Server
	files    map[string][]byte
	hits     int32
	env      *envstore.MemoryStore
	notes    bytes.Buffer
	pipeline *Pipeline

	mu     sync.Mutex
	states []State
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("current pointer junctions need cmd.exe")
	}

	root := t.TempDir()
	l, err := layout.New(layout.Options{
		Root:       filepath.Join(root, "user"),
		GlobalRoot: filepath.Join(root, "global"),
		LookupEnv:  func(string) (string, bool) { return "", false },
		GOOS:       "linux",
	})
	if err != nil {
		t.Fatalf("layout.New: %v", err)
	}

	f := &fixture{t: t, layout: l, files: map[string][]byte{}, env: envstore.NewMemoryStore(nil)}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		data, ok := f.files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(f.server.Close)

	agent, err := fetch.NewHTTPAgent(fetch.AgentConfig{Retries: -1, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPAgent: %v", err)
	}
	f.pipeline, err = New(Config{
		Layout:  l,
		Buckets: bucket.NewStore(l),
		Fetcher: fetch.NewManager(l, agent),
		Env: func(global bool) (*envconfig.Configurator, error) {
			locked := envstore.NewLocked(f.env, l.Locks(global), "env")
			return envconfig.New(locked, nil).WithSeparators('/', ":"), nil
		},
		Notes: &f.notes,
		Now:   func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
		GOOS:  "linux",
		Observer: func(app string, s State) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if app == "tool" {
				f.states = append(f.states, s)
			}
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

// publish serves a zip of files at /<name> and returns its URL and hash.
func (f *fixture) publish(name string, files map[string]string) (string, string) {
	f.t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for path, content := range files {
		w, err := zw.Create(path)
		if err != nil {
			f.t.Fatal(err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		f.t.Fatal(err)
	}
	f.files["/"+name] = buf.Bytes()
	sum := sha256.Sum256(buf.Bytes())
	return f.server.URL + "/" + name, hex.EncodeToString(sum[:])
}

func (f *fixture) manifest(app, body string) {
	f.t.Helper()
	path := f.layout.BucketManifest("main", app)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		f.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		f.t.Fatal(err)
	}
}

// toolManifest publishes tool 1.0.0 and writes its manifest.
func (f *fixture) toolManifest(extra string) {
	f.t.Helper()
	url, hash := f.publish("tool-1.0.0.zip", map[string]string{
		"bin/tool.exe": "tool binary",
		"README.md":    "readme",
	})
	f.manifest("tool", fmt.Sprintf(`{
		"version": "1.0.0",
		"url": %q,
		"hash": %q,
		"bin": "bin/tool.exe",
		"env_add_path": "bin",
		"env_set": {"TOOL_HOME": "$dir"},
		"notes": "Enjoy tool"%s
	}`, url, hash, extra))
}

func (f *fixture) journals() int {
	entries, err := os.ReadDir(f.layout.Journal())
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		f.t.Fatal(err)
	}
	return len(entries)
}

func TestInstall_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.toolManifest("")
	l := f.layout
	opts := options.InstallOptions{Arch: platform.Arch64}

	res, err := f.pipeline.Install(context.Background(), "tool", opts)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if res.State != StateRecordPersisted {
		t.Errorf("State = %s, want %s", res.State, StateRecordPersisted)
	}
	if hits := atomic.LoadInt32(&f.hits); hits != 1 {
		t.Errorf("downloads = %d, want 1", hits)
	}

	versionDir := l.VersionDir("tool", "1.0.0", false)
	if _, err := os.Stat(filepath.Join(versionDir, "bin", "tool.exe")); err != nil {
		t.Errorf("payload not extracted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(versionDir, "tool-1.0.0.zip")); !os.IsNotExist(err) {
		t.Error("archive should be removed after extraction")
	}

	target, err := state.Target(l.AppDir("tool", false))
	if err != nil || target != versionDir {
		t.Errorf("current -> %s (%v), want %s", target, err, versionDir)
	}

	rec, err := state.Installed(l, "tool", false)
	if err != nil {
		t.Fatalf("Installed: %v", err)
	}
	if rec.Version != "1.0.0" || rec.Bucket != "main" || rec.Arch != platform.Arch64 {
		t.Errorf("record = %+v", rec)
	}
	if rec.JournalID == "" {
		t.Error("record should reference the journal")
	}

	shimTarget, err := shim.New(l, shim.Options{GOOS: "linux"}).Resolve("tool")
	if err != nil {
		t.Fatalf("Resolve shim: %v", err)
	}
	if want := filepath.Join(l.CurrentDir("tool", false), "bin", "tool.exe"); shimTarget != want {
		t.Errorf("shim -> %s, want %s", shimTarget, want)
	}

	path, _, _ := f.env.Get("PATH")
	if want := l.CurrentDir("tool", false) + "/bin"; path != want {
		t.Errorf("PATH = %q, want %q", path, want)
	}
	home, _, _ := f.env.Get("TOOL_HOME")
	if home != versionDir {
		t.Errorf("TOOL_HOME = %q, want %q", home, versionDir)
	}

	j, err := transaction.Load(res.Journal)
	if err != nil {
		t.Fatalf("load journal: %v", err)
	}
	if j.State != transaction.StateCompleted {
		t.Errorf("journal state = %s", j.State)
	}

	if !strings.Contains(f.notes.String(), "Enjoy tool") {
		t.Errorf("notes not printed: %q", f.notes.String())
	}

	want := []State{
		StateManifestResolved, StateIdempotencyChecked, StateDependenciesResolved,
		StateDownloaded, StateHashVerified, StateExtracted, StateEnvironmentConfigured,
		StateShimmedAndShortcut, StateRecordPersisted,
	}
	if got := fmt.Sprint(f.states); got != fmt.Sprint(want) {
		t.Errorf("states = %v, want %v", f.states, want)
	}
}

func TestInstall_SecondRunSkips(t *testing.T) {
	f := newFixture(t)
	f.toolManifest("")
	opts := options.InstallOptions{Arch: platform.Arch64}

	if _, err := f.pipeline.Install(context.Background(), "tool", opts); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	hits, journals, writes := atomic.LoadInt32(&f.hits), f.journals(), f.env.Writes

	res, err := f.pipeline.Install(context.Background(), "tool", opts)
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if !res.Skipped() {
		t.Errorf("State = %s, want skip", res.State)
	}
	if atomic.LoadInt32(&f.hits) != hits || f.journals() != journals || f.env.Writes != writes {
		t.Error("skipped install must not download or write")
	}

	t.Run("force reinstalls", func(t *testing.T) {
		opts.ForceInstallOverride = true
		res, err := f.pipeline.Install(context.Background(), "tool", opts)
		if err != nil {
			t.Fatalf("forced Install: %v", err)
		}
		if res.State != StateRecordPersisted {
			t.Errorf("State = %s", res.State)
		}
		// cached artifact is reused
		if atomic.LoadInt32(&f.hits) != hits {
			t.Error("forced install should reuse the cache")
		}
		assertAppDir(t, f.layout.AppDir("tool", false), "1.0.0", "current")
		if _, err := os.Stat(filepath.Join(f.layout.CurrentDir("tool", false), "bin", "tool.exe")); err != nil {
			t.Errorf("payload missing after reinstall: %v", err)
		}
	})
}

func TestInstall_FailedForcedReinstallKeepsCurrent(t *testing.T) {
	f := newFixture(t)
	f.toolManifest("")
	l := f.layout

	if _, err := f.pipeline.Install(context.Background(), "tool", options.InstallOptions{Arch: platform.Arch64}); err != nil {
		t.Fatalf("first Install: %v", err)
	}

	f.files["/tool-1.0.0.zip"] = []byte("PK\x03\x04 truncated")
	_, err := f.pipeline.Install(context.Background(), "tool", options.InstallOptions{
		Arch:                  platform.Arch64,
		ForceInstallOverride:  true,
		NoUseDownloadCache:    true,
		SkipDownloadHashCheck: true,
	})
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != StateExtracted {
		t.Errorf("Stage = %s, want %s", stageErr.Stage, StateExtracted)
	}

	data, err := os.ReadFile(filepath.Join(l.CurrentDir("tool", false), "bin", "tool.exe"))
	if err != nil || string(data) != "tool binary" {
		t.Errorf("current payload = %q, %v", data, err)
	}
	rec, err := state.Installed(l, "tool", false)
	if err != nil {
		t.Fatalf("Installed: %v", err)
	}
	if rec.Version != "1.0.0" {
		t.Errorf("record version = %s", rec.Version)
	}
	assertAppDir(t, l.AppDir("tool", false), "1.0.0", "current")
}

// assertAppDir checks that appDir holds exactly the named entries, so no
// staging tree is left behind.
func assertAppDir(t *testing.T, appDir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(appDir)
	if err != nil {
		t.Fatalf("read app dir: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("app dir entries = %v, want %v", got, want)
	}
}

func TestInstall_HashMismatch(t *testing.T) {
	f := newFixture(t)
	url, _ := f.publish("tool-1.0.0.zip", map[string]string{"tool.exe": "x"})
	f.manifest("tool", fmt.Sprintf(`{"version": "1.0.0", "url": %q, "hash": %q, "bin": "tool.exe"}`,
		url, strings.Repeat("0", 64)))

	_, err := f.pipeline.Install(context.Background(), "tool", options.InstallOptions{Arch: platform.Arch64})

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != StateHashVerified {
		t.Errorf("Stage = %s, want %s", stageErr.Stage, StateHashVerified)
	}
	var mismatch *fetch.HashMismatchError
	if !errors.As(err, &mismatch) {
		t.Errorf("expected HashMismatchError in chain, got %v", err)
	}
	if _, err := os.Stat(f.layout.VersionDir("tool", "1.0.0", false)); !os.IsNotExist(err) {
		t.Error("version directory must not be created")
	}

	j, err := transaction.Load(stageErr.Journal)
	if err != nil {
		t.Fatalf("load journal: %v", err)
	}
	if j.State != transaction.StateFailed || j.LastError == "" {
		t.Errorf("journal = %+v", j)
	}

	t.Run("retry downloads again", func(t *testing.T) {
		before := atomic.LoadInt32(&f.hits)
		f.pipeline.Install(context.Background(), "tool", options.InstallOptions{Arch: platform.Arch64})
		if atomic.LoadInt32(&f.hits) != before+1 {
			t.Error("quarantined artifact should not be reused")
		}
	})
}

func TestInstall_DownloadOnly(t *testing.T) {
	f := newFixture(t)
	f.toolManifest("")

	res, err := f.pipeline.Install(context.Background(), "tool", options.InstallOptions{
		Arch:                  platform.Arch64,
		OnlyDownloadNoInstall: true,
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !res.Skipped() || len(res.Artifacts) != 1 {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(res.Artifacts[0].Path); err != nil {
		t.Errorf("artifact not cached: %v", err)
	}
	if _, err := os.Stat(f.layout.AppDir("tool", false)); !os.IsNotExist(err) {
		t.Error("download-only must not create the app directory")
	}
}

func TestInstall_Dependencies(t *testing.T) {
	f := newFixture(t)
	depURL, depHash := f.publish("dep-2.0.zip", map[string]string{"dep.exe": "dep"})
	f.manifest("dep", fmt.Sprintf(`{"version": "2.0", "url": %q, "hash": %q, "bin": "dep.exe"}`, depURL, depHash))
	f.toolManifest(`, "depends": "main/dep"`)

	res, err := f.pipeline.Install(context.Background(), "tool", options.InstallOptions{Arch: platform.Arch64})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if len(res.Dependencies) != 1 || res.Dependencies[0].App != "dep" || res.Dependencies[0].State != StateRecordPersisted {
		t.Fatalf("dependencies = %+v", res.Dependencies)
	}
	for _, app := range []string{"dep", "tool"} {
		if _, err := state.Installed(f.layout, app, false); err != nil {
			t.Errorf("%s not installed: %v", app, err)
		}
	}

	t.Run("installed dependency is skipped", func(t *testing.T) {
		res, err := f.pipeline.Install(context.Background(), "tool", options.InstallOptions{
			Arch:                 platform.Arch64,
			ForceInstallOverride: true,
		})
		if err != nil {
			t.Fatalf("Install: %v", err)
		}
		if len(res.Dependencies) != 1 || !res.Dependencies[0].Skipped() {
			t.Errorf("dependency should be skipped, got %+v", res.Dependencies)
		}
	})
}

func TestInstall_DependencyFailureAbortsParent(t *testing.T) {
	f := newFixture(t)
	f.manifest("dep", fmt.Sprintf(`{"version": "2.0", "url": %q, "hash": %q}`,
		f.server.URL+"/missing.zip", strings.Repeat("0", 64)))
	f.toolManifest(`, "depends": "dep"`)

	_, err := f.pipeline.Install(context.Background(), "tool", options.InstallOptions{Arch: platform.Arch64})
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StateDependenciesResolved {
		t.Fatalf("expected StageError at dependencies, got %v", err)
	}
	if _, err := os.Stat(f.layout.AppDir("tool", false)); !os.IsNotExist(err) {
		t.Error("parent must not be installed")
	}
}

func TestInstall_DependencyCycle(t *testing.T) {
	f := newFixture(t)
	f.manifest("a", `{"version": "1.0", "url": "https://example.invalid/a.zip", "depends": "b"}`)
	f.manifest("b", `{"version": "1.0", "url": "https://example.invalid/b.zip", "depends": "main/a"}`)

	_, err := f.pipeline.Install(context.Background(), "a", options.InstallOptions{Arch: platform.Arch64})
	var cycle *DependencyCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected DependencyCycleError, got %v", err)
	}
	if f.journals() != 0 || atomic.LoadInt32(&f.hits) != 0 {
		t.Error("cycle must be reported before any side effect")
	}
}

func TestInstall_NoAutoDownloadDepends(t *testing.T) {
	f := newFixture(t)
	f.toolManifest(`, "depends": "ghost"`)

	res, err := f.pipeline.Install(context.Background(), "tool", options.InstallOptions{
		Arch:                  platform.Arch64,
		NoAutoDownloadDepends: true,
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if len(res.Dependencies) != 0 {
		t.Errorf("dependencies = %+v", res.Dependencies)
	}
}

func TestInstall_NightlyWithoutHash(t *testing.T) {
	f := newFixture(t)
	url, _ := f.publish("tool.zip", map[string]string{"tool.exe": "x"})
	f.manifest("tool", fmt.Sprintf(`{"version": "Nightly", "url": %q, "bin": "tool.exe"}`, url))

	if _, err := f.pipeline.Install(context.Background(), "tool", options.InstallOptions{Arch: platform.Arch64}); err != nil {
		t.Fatalf("Install: %v", err)
	}

	t.Run("versioned manifest requires hash", func(t *testing.T) {
		f.manifest("other", fmt.Sprintf(`{"version": "1.0", "url": %q}`, url))
		_, err := f.pipeline.Install(context.Background(), "other", options.InstallOptions{Arch: platform.Arch64})
		var missing *fetch.MissingHashError
		if !errors.As(err, &missing) {
			t.Errorf("expected MissingHashError, got %v", err)
		}
	})
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	f.toolManifest("")

	file := filepath.Join(t.TempDir(), "local.json")
	if err := os.WriteFile(file, []byte(`{"version": "3.0", "url": "https://example.invalid/x.zip"}`), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		spec        string
		wantName    string
		wantVersion string
		wantErr     bool
	}{
		{"tool", "tool", "1.0.0", false},
		{"main/tool", "tool", "1.0.0", false},
		{"tool@1.0.0", "tool", "1.0.0", false},
		{file, "local", "3.0", false},
		{"missing", "", "", true},
		{"main/tool/extra", "", "", true},
		{"tool@", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			m, err := f.pipeline.Resolve(context.Background(), tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			name, _ := m.Name()
			if name != tt.wantName || m.Version != tt.wantVersion {
				t.Errorf("got %s %s, want %s %s", name, m.Version, tt.wantName, tt.wantVersion)
			}
		})
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without buckets and fetcher")
	}
}
