package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
	"github.com/ZebulonRouseFrantzich/zoop/internal/state"
	"github.com/ZebulonRouseFrantzich/zoop/internal/testutil"
)

// mockFinder serves manifest versions keyed by app.
type mockFinder struct {
	versions map[string]string
}

func (m *mockFinder) Lookup(bucket, app string) (*manifest.Manifest, error) {
	return m.Find(app)
}

func (m *mockFinder) Find(app string) (*manifest.Manifest, error) {
	v, ok := m.versions[app]
	if !ok {
		return nil, errors.New("manifest not found")
	}
	return manifest.Parse([]byte(fmt.Sprintf(`{"version": %q}`, v)), manifest.Source{Name: app, Bucket: "main"})
}

func installApp(t *testing.T, l layout.Layout, app, version string, global bool) {
	t.Helper()
	dir := l.VersionDir(app, version, global)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	scope := "user"
	if global {
		scope = "global"
	}
	if _, err := state.Write(dir, &state.Record{App: app, Version: version, Bucket: "main", Scope: scope}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := state.Repoint(dir); err != nil {
		t.Fatal(err)
	}
}

func TestStatusService_Status(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("current pointer junctions need cmd.exe")
	}
	l := testutil.Layout(t)
	installApp(t, l, "git", "2.40.0", false)
	installApp(t, l, "7zip", "23.01", false)
	installApp(t, l, "gone", "1.0", false)
	installApp(t, l, "node", "20.1.0", true)

	finder := &mockFinder{versions: map[string]string{
		"git":  "2.44.0",
		"7zip": "23.01",
		"node": "21.0.0",
	}}
	fixed := time.Date(2025, 1, 16, 14, 30, 22, 0, time.UTC)
	svc := NewStatusService(l, finder, FixedClock{At: fixed}, 2)

	result, err := svc.Status(context.Background(), StatusRequest{Global: true})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !result.CheckedAt.Equal(fixed) {
		t.Errorf("CheckedAt = %v", result.CheckedAt)
	}

	want := []struct {
		app      string
		scope    string
		outdated bool
		failed   bool
	}{
		{"7zip", "user", false, false},
		{"git", "user", true, false},
		{"gone", "user", false, true},
		{"node", "global", true, false},
	}
	if len(result.Apps) != len(want) {
		t.Fatalf("got %d apps, want %d: %+v", len(result.Apps), len(want), result.Apps)
	}
	for i, w := range want {
		got := result.Apps[i]
		if got.App != w.app || got.Scope != w.scope || got.Outdated != w.outdated || (got.Err != nil) != w.failed {
			t.Errorf("Apps[%d] = %+v, want %+v", i, got, w)
		}
	}
	if failed := result.Failed(); len(failed) != 1 || failed[0].App != "gone" {
		t.Errorf("Failed = %+v", failed)
	}
}

func TestStatusService_Filter(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("current pointer junctions need cmd.exe")
	}
	l := testutil.Layout(t)
	installApp(t, l, "git", "2.40.0", false)
	installApp(t, l, "7zip", "23.01", false)

	svc := NewStatusService(l, &mockFinder{versions: map[string]string{"git": "2.40.0"}}, SystemClock{}, 0)
	result, err := svc.Status(context.Background(), StatusRequest{Apps: []string{"GIT"}})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(result.Apps) != 1 || result.Apps[0].App != "git" || result.Apps[0].Outdated {
		t.Errorf("Apps = %+v", result.Apps)
	}
}

func TestStatusService_Empty(t *testing.T) {
	svc := NewStatusService(testutil.Layout(t), &mockFinder{}, SystemClock{}, 0)
	result, err := svc.Status(context.Background(), StatusRequest{})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(result.Apps) != 0 {
		t.Errorf("Apps = %+v", result.Apps)
	}
}

func TestStatusService_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewStatusService(testutil.Layout(t), &mockFinder{}, SystemClock{}, 0)
	if _, err := svc.Status(ctx, StatusRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOutdated(t *testing.T) {
	tests := []struct {
		installed, latest string
		want              bool
	}{
		{"1.0.0", "1.0.1", true},
		{"1.10.0", "1.9.0", false},
		{"2.44.0.windows.1", "2.44.0.windows.1", false},
		{"23.01", "24.07", true},
		{"nightly", "nightly", false},
		{"1.0", "nightly", false},
		{"r123", "r124", true},
		{"r123", "r123", false},
	}
	for _, tt := range tests {
		if got := Outdated(tt.installed, tt.latest); got != tt.want {
			t.Errorf("Outdated(%q, %q) = %v, want %v", tt.installed, tt.latest, got, tt.want)
		}
	}
}
