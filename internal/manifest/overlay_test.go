package manifest

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
)

func mustParse(t *testing.T, name, data string) *Manifest {
	t.Helper()
	m, err := Parse([]byte(data), Source{Name: name})
	if err != nil {
		t.Fatalf("Parse(%s) error = %v", name, err)
	}
	return m
}

func TestResolve_OverlayWins(t *testing.T) {
	m := mustParse(t, "git", gitManifest)

	tests := []struct {
		arch     platform.Arch
		wantURL  []string
		wantHash []string
	}{
		{platform.Arch64, []string{"https://example.com/git-64.7z"}, []string{"sha256:aaaa"}},
		{platform.Arch32, []string{"https://example.com/git-32.7z"}, []string{"bbbb"}},
	}

	for _, tt := range tests {
		t.Run(tt.arch.String(), func(t *testing.T) {
			e, err := m.Effective(tt.arch)
			if err != nil {
				t.Fatalf("Effective() error = %v", err)
			}
			if !reflect.DeepEqual(e.URLs, tt.wantURL) {
				t.Errorf("URLs = %v, want %v", e.URLs, tt.wantURL)
			}
			if !reflect.DeepEqual(e.Hashes, tt.wantHash) {
				t.Errorf("Hashes = %v, want %v", e.Hashes, tt.wantHash)
			}
			// bin is generic only
			if len(e.Bin) != 2 || e.Bin[1].Alias != "gitbash" {
				t.Errorf("Bin = %+v", e.Bin)
			}
			if !reflect.DeepEqual(e.EnvAddPath, []string{"cmd"}) {
				t.Errorf("EnvAddPath = %v", e.EnvAddPath)
			}
		})
	}
}

func TestResolve_NoOverlayKeepsGeneric(t *testing.T) {
	m := mustParse(t, "jq", `{
		"version": "1.7.1",
		"url": "https://e/jq.exe",
		"hash": "abcd",
		"bin": "jq.exe"
	}`)

	for _, arch := range platform.Arches {
		e, err := m.Effective(arch)
		if err != nil {
			t.Fatalf("Effective(%s) error = %v", arch, err)
		}
		if !reflect.DeepEqual(e.URLs, []string{"https://e/jq.exe"}) {
			t.Errorf("%s: URLs = %v", arch, e.URLs)
		}
		if e.HashFor(0) != "abcd" || e.HashFor(1) != "" {
			t.Errorf("%s: HashFor wrong: %v", arch, e.Hashes)
		}
	}
}

func TestResolve_PresentButEmptyOverlayWins(t *testing.T) {
	m := mustParse(t, "tool", `{
		"version": "1.0",
		"url": "https://e/tool.zip",
		"bin": "tool.exe",
		"env_add_path": "bin",
		"architecture": {
			"arm64": {"bin": [], "env_add_path": []}
		}
	}`)

	e, err := m.Effective(platform.ArchARM64)
	if err != nil {
		t.Fatalf("Effective() error = %v", err)
	}
	if len(e.Bin) != 0 {
		t.Errorf("Bin = %+v, want empty overlay to win", e.Bin)
	}
	if len(e.EnvAddPath) != 0 {
		t.Errorf("EnvAddPath = %v, want empty overlay to win", e.EnvAddPath)
	}
	if !reflect.DeepEqual(e.URLs, []string{"https://e/tool.zip"}) {
		t.Errorf("URLs = %v, want generic url", e.URLs)
	}

	bin, ok := Resolve(m, platform.Arch64, func(o *Overridable) *BinList { return o.Bin })
	if !ok || len(bin) != 1 {
		t.Errorf("Resolve(64bit bin) = %v, %v", bin, ok)
	}
	_, ok = Resolve(m, platform.Arch64, func(o *Overridable) *Installer { return o.Installer })
	if ok {
		t.Error("Resolve(installer) ok = true for absent field")
	}
}

func TestEffective_MissingArch(t *testing.T) {
	m := mustParse(t, "only64", `{
		"version": "1.0",
		"architecture": {"64bit": {"url": "https://e/x64.zip"}}
	}`)

	_, err := m.Effective(platform.ArchARM64)
	var archErr *ArchOverlayError
	if !errors.As(err, &archErr) {
		t.Fatalf("Effective(arm64) error = %v, want *ArchOverlayError", err)
	}
	if archErr.Arch != platform.ArchARM64 || !reflect.DeepEqual(archErr.Available, []platform.Arch{platform.Arch64}) {
		t.Errorf("ArchOverlayError = %+v", archErr)
	}

	if _, err := m.Effective(platform.Arch("x64")); !errors.As(err, &archErr) {
		t.Errorf("Effective(invalid) error = %v, want *ArchOverlayError", err)
	}
}

func TestEffective_ArchMissingButGenericURL(t *testing.T) {
	m := mustParse(t, "mixed", `{
		"version": "1.0",
		"url": "https://e/any.zip",
		"architecture": {"64bit": {"hash": "abcd"}}
	}`)

	e, err := m.Effective(platform.Arch32)
	if err != nil {
		t.Fatalf("Effective() error = %v", err)
	}
	if e.URLs[0] != "https://e/any.zip" {
		t.Errorf("URLs = %v", e.URLs)
	}
}

func TestEffective_Installer(t *testing.T) {
	m := mustParse(t, "setup", `{
		"version": "3.1",
		"url": "https://e/setup.exe",
		"installer": {"args": ["/S", "/D=$dir"]},
		"architecture": {
			"32bit": {"installer": {"file": "setup32.exe", "keep": true}}
		}
	}`)

	e64, err := m.Effective(platform.Arch64)
	if err != nil {
		t.Fatal(err)
	}
	if e64.Installer == nil || !reflect.DeepEqual(e64.Installer.Args.Strings(), []string{"/S", "/D=$dir"}) {
		t.Errorf("64bit Installer = %+v", e64.Installer)
	}

	e32, err := m.Effective(platform.Arch32)
	if err != nil {
		t.Fatal(err)
	}
	if e32.Installer == nil || e32.Installer.File != "setup32.exe" || !e32.Installer.Keep || len(e32.Installer.Args) != 0 {
		t.Errorf("32bit Installer = %+v, want whole overlay to win", e32.Installer)
	}
}
