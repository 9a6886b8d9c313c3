package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// CurrentName is the pointer entry inside an app directory.
const CurrentName = "current"

// Repoint makes <appDir>/current refer to versionDir. The new link is
// created under a temporary name and then moved into place, so readers see
// either the old or the new target.
func Repoint(versionDir string) (string, error) {
	appDir := filepath.Dir(versionDir)
	current := filepath.Join(appDir, CurrentName)

	info, err := os.Stat(versionDir)
	if err != nil {
		return "", fmt.Errorf("repoint current: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repoint current: %s is not a directory", versionDir)
	}

	// Junctions report ModeIrregular.
	if fi, err := os.Lstat(current); err == nil && fi.Mode()&(os.ModeSymlink|os.ModeIrregular) == 0 && fi.IsDir() {
		return "", fmt.Errorf("repoint current: %s is a real directory", current)
	}

	tmp := filepath.Join(appDir, fmt.Sprintf(".%s-%d", CurrentName, os.Getpid()))
	os.Remove(tmp)
	if err := link(versionDir, tmp); err != nil {
		return "", fmt.Errorf("create link: %w", err)
	}
	if err := replaceLink(tmp, current); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("replace current: %w", err)
	}
	return current, nil
}

// Target returns the version directory the current pointer refers to.
func Target(appDir string) (string, error) {
	target, err := os.Readlink(filepath.Join(appDir, CurrentName))
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(appDir, target)
	}
	return filepath.Clean(target), nil
}

// Swap moves staged into place as versionDir. An existing versionDir is
// moved aside first and put back if the swap fails, so versionDir is only
// ever the old tree or the fully staged one. Between the two renames
// versionDir is briefly absent.
func Swap(staged, versionDir string) error {
	old := staged + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("swap version directory: %w", err)
	}
	hadOld := false
	if _, err := os.Lstat(versionDir); err == nil {
		if err := os.Rename(versionDir, old); err != nil {
			return fmt.Errorf("swap version directory: %w", err)
		}
		hadOld = true
	}
	if err := os.Rename(staged, versionDir); err != nil {
		if hadOld {
			if rerr := os.Rename(old, versionDir); rerr != nil {
				return fmt.Errorf("swap version directory: %w (restore: %v)", err, rerr)
			}
		}
		return fmt.Errorf("swap version directory: %w", err)
	}
	if hadOld {
		// The swap already happened; a tree that cannot be removed is only
		// clutter.
		_ = os.RemoveAll(old)
	}
	return nil
}
