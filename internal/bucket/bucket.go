// Package bucket provides read-only access to installed buckets: named
// directories of app manifests under <root>/buckets/<name>/bucket.
// Buckets are typically git clones; their remote URL and manifest history
// are read with go-git, but zoop never fetches or modifies them.
package bucket

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
)

// Common bucket errors
var (
	ErrBucketNotFound   = errors.New("bucket not found")
	ErrManifestNotFound = errors.New("manifest not found")
	ErrVersionNotFound  = errors.New("version not found in bucket history")
	ErrNotAGitRepo      = errors.New("bucket is not a git repository")
)

// Store looks up manifests across the buckets of one layout.
type Store struct {
	layout layout.Layout
}

// NewStore creates a bucket store for the given layout.
func NewStore(l layout.Layout) *Store {
	return &Store{layout: l}
}

// List returns the installed bucket names, sorted, with "main" first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.layout.Buckets())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read buckets directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		if names[i] == "main" || names[j] == "main" {
			return names[i] == "main" && names[j] != "main"
		}
		return names[i] < names[j]
	})
	return names, nil
}

// ManifestPath returns the manifest path for app in bucket if it exists.
func (s *Store) ManifestPath(bucket, app string) (string, error) {
	if _, err := os.Stat(s.layout.BucketDir(bucket)); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
		}
		return "", fmt.Errorf("stat bucket %s: %w", bucket, err)
	}
	path := s.layout.BucketManifest(bucket, app)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s/%s", ErrManifestNotFound, bucket, app)
		}
		return "", fmt.Errorf("stat manifest: %w", err)
	}
	return path, nil
}

// Lookup loads app from a specific bucket.
func (s *Store) Lookup(bucket, app string) (*manifest.Manifest, error) {
	path, err := s.ManifestPath(bucket, app)
	if err != nil {
		return nil, err
	}
	return manifest.Load(path, bucket)
}

// Find searches every bucket for app and loads the first match.
func (s *Store) Find(app string) (*manifest.Manifest, error) {
	buckets, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, b := range buckets {
		path := s.layout.BucketManifest(b, app)
		if _, err := os.Stat(path); err == nil {
			return manifest.Load(path, b)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, app)
}

// Apps lists the app names a bucket provides.
func (s *Store) Apps(bucket string) ([]string, error) {
	dir := filepath.Join(s.layout.BucketDir(bucket), "bucket")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
		}
		return nil, fmt.Errorf("read bucket %s: %w", bucket, err)
	}
	var apps []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		apps = append(apps, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(apps)
	return apps, nil
}
