package installer

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/zoop/internal/envconfig"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
)

type call struct {
	dir  string
	name string
	args []string
}

// fakeCommand records calls and fails when fail is set.
func fakeCommand(calls *[]call, fail error) CommandFunc {
	return func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, call{dir: dir, name: name, args: args})
		if fail != nil {
			return []byte("installer output"), fail
		}
		return nil, nil
	}
}

func versionDir(t *testing.T, files ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "apps", "tool", "1.0")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("MZ payload"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestInstall_Directive(t *testing.T) {
	tests := []struct {
		name      string
		inst      *manifest.Installer
		wantFile  string
		wantArgs  []string
		wantKept  bool
		wantError bool
	}{
		{
			name:     "explicit file with expanded args",
			inst:     &manifest.Installer{File: "setup.exe", Args: manifest.StringOrArray{"/S", "/D=$dir"}},
			wantFile: "setup.exe",
			wantArgs: []string{"/S", "/D=<dir>"},
		},
		{
			name:     "defaults to downloaded file and keeps it",
			inst:     &manifest.Installer{Args: manifest.StringOrArray{"/quiet"}, Keep: true},
			wantFile: "setup.exe",
			wantArgs: []string{"/quiet"},
			wantKept: true,
		},
		{
			name:      "file outside version dir",
			inst:      &manifest.Installer{File: "../../evil.exe"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := versionDir(t, "setup.exe")
			var calls []call
			x := New(nil, WithCommand(fakeCommand(&calls, nil)))
			vars := envconfig.Vars{"app": "tool", "dir": dir}
			eff := &manifest.Effective{Name: "tool", Installer: tt.inst}

			_, err := x.Install(context.Background(), eff, dir, []string{"setup.exe"}, vars)
			if tt.wantError {
				var instErr *InstallerError
				if !errors.As(err, &instErr) {
					t.Fatalf("expected InstallerError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Install: %v", err)
			}

			if len(calls) != 1 {
				t.Fatalf("got %d calls, want 1", len(calls))
			}
			if want := filepath.Join(dir, tt.wantFile); calls[0].name != want {
				t.Errorf("ran %s, want %s", calls[0].name, want)
			}
			wantArgs := strings.Join(tt.wantArgs, " ")
			wantArgs = strings.ReplaceAll(wantArgs, "<dir>", dir)
			if got := strings.Join(calls[0].args, " "); got != wantArgs {
				t.Errorf("args = %q, want %q", got, wantArgs)
			}

			_, statErr := os.Stat(filepath.Join(dir, tt.wantFile))
			if kept := statErr == nil; kept != tt.wantKept {
				t.Errorf("installer kept = %v, want %v", kept, tt.wantKept)
			}
		})
	}
}

func TestInstall_CommandFailure(t *testing.T) {
	dir := versionDir(t, "setup.exe")
	var calls []call
	x := New(nil, WithCommand(fakeCommand(&calls, errors.New("exit status 2"))))
	eff := &manifest.Effective{Name: "tool", Installer: &manifest.Installer{File: "setup.exe", Args: manifest.StringOrArray{"/S"}}}

	_, err := x.Install(context.Background(), eff, dir, []string{"setup.exe"}, envconfig.Vars{})
	var instErr *InstallerError
	if !errors.As(err, &instErr) {
		t.Fatalf("expected InstallerError, got %v", err)
	}
	if instErr.Output != "installer output" {
		t.Errorf("Output = %q", instErr.Output)
	}
	if _, err := os.Stat(filepath.Join(dir, "setup.exe")); err != nil {
		t.Error("installer should not be removed after a failed run")
	}
}

func TestInstall_NoDirective(t *testing.T) {
	t.Run("msi is unpacked", func(t *testing.T) {
		dir := versionDir(t, "tool.msi")
		var calls []call
		x := New(nil, WithCommand(fakeCommand(&calls, nil)))

		removed, err := x.Install(context.Background(), &manifest.Effective{Name: "tool"}, dir, []string{"tool.msi"}, envconfig.Vars{})
		if err != nil {
			t.Fatalf("Install: %v", err)
		}
		if len(calls) != 1 || calls[0].name != "msiexec" || calls[0].args[0] != "/a" {
			t.Errorf("calls = %+v", calls)
		}
		if len(removed) != 1 {
			t.Errorf("removed = %v", removed)
		}
	})

	t.Run("innosetup uses innounp", func(t *testing.T) {
		dir := versionDir(t, "setup.exe")
		var calls []call
		x := New(nil,
			WithCommand(fakeCommand(&calls, nil)),
			WithLookPath(func(string) (string, error) { return "/bin/innounp", nil }),
		)

		_, err := x.Install(context.Background(), &manifest.Effective{Name: "tool", InnoSetup: true}, dir, []string{"setup.exe"}, envconfig.Vars{})
		if err != nil {
			t.Fatalf("Install: %v", err)
		}
		if len(calls) != 1 || calls[0].name != "/bin/innounp" {
			t.Errorf("calls = %+v", calls)
		}
	})

	t.Run("innosetup without innounp", func(t *testing.T) {
		dir := versionDir(t, "setup.exe")
		x := New(nil, WithLookPath(func(string) (string, error) { return "", exec.ErrNotFound }))

		_, err := x.Install(context.Background(), &manifest.Effective{Name: "tool", InnoSetup: true}, dir, []string{"setup.exe"}, envconfig.Vars{})
		if !errors.Is(err, ErrInnoUnpackerMissing) {
			t.Errorf("expected ErrInnoUnpackerMissing, got %v", err)
		}
	})

	t.Run("plain executable is kept", func(t *testing.T) {
		dir := versionDir(t, "tool.exe")
		var calls []call
		x := New(nil, WithCommand(fakeCommand(&calls, nil)))

		removed, err := x.Install(context.Background(), &manifest.Effective{Name: "tool"}, dir, []string{"tool.exe"}, envconfig.Vars{})
		if err != nil {
			t.Fatalf("Install: %v", err)
		}
		if len(calls) != 0 || len(removed) != 0 {
			t.Errorf("calls = %v, removed = %v", calls, removed)
		}
	})
}

func TestInstall_Script(t *testing.T) {
	dir := versionDir(t)
	x := New(nil)
	vars := envconfig.Vars{"app": "tool", "dir": dir}
	eff := &manifest.Effective{
		Name:      "tool",
		Installer: &manifest.Installer{Script: manifest.StringOrArray{`fs.write("marker.txt", app)`}},
	}

	if _, err := x.Install(context.Background(), eff, dir, nil, vars); err != nil {
		t.Fatalf("Install: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "marker.txt"))
	if err != nil || string(data) != "tool" {
		t.Errorf("marker = %q, %v", data, err)
	}
}
