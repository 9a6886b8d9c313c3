package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CacheEntry describes one cached artifact.
type CacheEntry struct {
	App     string
	Version string
	File    string
	Path    string
	Size    int64
}

// ListCache returns cached artifacts, optionally limited to apps.
// In-flight .download files are ignored.
func ListCache(cacheDir string, apps ...string) ([]CacheEntry, error) {
	dirEntries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache directory: %w", err)
	}

	want := make(map[string]bool, len(apps))
	for _, a := range apps {
		want[a] = true
	}
	all := len(want) == 0 || want["*"]

	var out []CacheEntry
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasSuffix(de.Name(), ".download") {
			continue
		}
		parts := strings.SplitN(de.Name(), "#", 3)
		if len(parts) != 3 {
			continue
		}
		if !all && !want[parts[0]] {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, CacheEntry{
			App:     parts[0],
			Version: parts[1],
			File:    parts[2],
			Path:    filepath.Join(cacheDir, de.Name()),
			Size:    info.Size(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].App != out[j].App {
			return out[i].App < out[j].App
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// RemoveCache deletes cached artifacts for apps ("*" or none for all) and
// returns what was removed.
func RemoveCache(cacheDir string, apps ...string) ([]CacheEntry, error) {
	entries, err := ListCache(cacheDir, apps...)
	if err != nil {
		return nil, err
	}
	removed := entries[:0]
	for _, e := range entries {
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", e.Path, err)
		}
		removed = append(removed, e)
	}
	return removed, nil
}
