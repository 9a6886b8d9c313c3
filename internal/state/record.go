// Package state reads and writes the per-version install record and owns
// the apps/<app>/current pointer.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
	"github.com/ZebulonRouseFrantzich/zoop/internal/options"
	"github.com/ZebulonRouseFrantzich/zoop/internal/platform"
)

const (
	// RecordFile is the install record inside a version directory.
	RecordFile = "install.json"
	// ManifestFile is the manifest snapshot inside a version directory.
	ManifestFile = "manifest.json"
)

// ErrNotInstalled is returned when an app has no readable record.
var ErrNotInstalled = errors.New("app is not installed")

// Record is the install.json document.
type Record struct {
	App         string                 `json:"app"`
	Version     string                 `json:"version"`
	Bucket      string                 `json:"bucket,omitempty"`
	BucketURL   string                 `json:"bucket_url,omitempty"`
	Arch        platform.Arch          `json:"architecture"`
	Scope       string                 `json:"scope"`
	URLs        []string               `json:"url,omitempty"`
	Options     options.InstallOptions `json:"options"`
	InstalledAt time.Time              `json:"installed_at"`
	JournalID   string                 `json:"journal_id,omitempty"`
	Hold        bool                   `json:"hold,omitempty"`
}

// Global reports whether the record belongs to the global scope.
func (r *Record) Global() bool {
	return r.Scope == "global"
}

// StateRecordError reports a record that could not be read or written.
type StateRecordError struct {
	App  string
	Path string
	Err  error
}

func (e *StateRecordError) Error() string {
	return fmt.Sprintf("install record for %s (%s): %v", e.App, e.Path, e.Err)
}

func (e *StateRecordError) Unwrap() error {
	return e.Err
}

// Write persists rec and the manifest snapshot into versionDir. Both files
// are written atomically and replace any previous record.
func Write(versionDir string, rec *Record, manifestJSON []byte) ([]string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, &StateRecordError{App: rec.App, Path: versionDir, Err: err}
	}

	recPath := filepath.Join(versionDir, RecordFile)
	if err := writeAtomic(recPath, append(data, '\n')); err != nil {
		return nil, &StateRecordError{App: rec.App, Path: recPath, Err: err}
	}
	written := []string{recPath}

	if len(manifestJSON) > 0 {
		mPath := filepath.Join(versionDir, ManifestFile)
		if err := writeAtomic(mPath, manifestJSON); err != nil {
			return written, &StateRecordError{App: rec.App, Path: mPath, Err: err}
		}
		written = append(written, mPath)
	}
	return written, nil
}

// Read loads the record from dir, usually a current pointer.
func Read(dir string) (*Record, error) {
	path := filepath.Join(dir, RecordFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotInstalled
	}
	if err != nil {
		return nil, &StateRecordError{Path: path, Err: err}
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &StateRecordError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	return &rec, nil
}

// Installed reads the active record of app in the given scope.
func Installed(l layout.Layout, app string, global bool) (*Record, error) {
	rec, err := Read(l.CurrentDir(app, global))
	if err != nil {
		var recErr *StateRecordError
		if errors.As(err, &recErr) {
			recErr.App = app
		}
		return nil, err
	}
	return rec, nil
}

// InstalledApps lists apps in a scope that have a current pointer, sorted.
func InstalledApps(l layout.Layout, global bool) ([]string, error) {
	entries, err := os.ReadDir(l.Apps(global))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read apps dir: %w", err)
	}
	var apps []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, err := os.Stat(l.CurrentDir(e.Name(), global)); err == nil {
			apps = append(apps, e.Name())
		}
	}
	sort.Strings(apps)
	return apps, nil
}

// CheckBeforeInstall reports whether installing version of app in the
// requested scope would be a no-op. It only reads.
func CheckBeforeInstall(l layout.Layout, app, version string, global, force bool) (bool, *Record, error) {
	rec, err := Installed(l, app, global)
	if errors.Is(err, ErrNotInstalled) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	if force {
		return false, rec, nil
	}
	same := rec.Version == version && rec.Global() == global
	return same, rec, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
