package service

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/zoop/internal/fetch"
)

// CacheService lists and prunes the download cache.
type CacheService struct {
	cacheDir string
}

// NewCacheService creates a cache service over cacheDir.
func NewCacheService(cacheDir string) *CacheService {
	return &CacheService{cacheDir: cacheDir}
}

// CacheResult lists cache entries and their combined size.
type CacheResult struct {
	Entries []fetch.CacheEntry
	Total   int64
}

func newCacheResult(entries []fetch.CacheEntry) *CacheResult {
	r := &CacheResult{Entries: entries}
	for _, e := range entries {
		r.Total += e.Size
	}
	return r
}

// Show lists cached artifacts for apps; no apps or "*" means all.
func (s *CacheService) Show(ctx context.Context, apps ...string) (*CacheResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := fetch.ListCache(s.cacheDir, apps...)
	if err != nil {
		return nil, fmt.Errorf("list cache: %w", err)
	}
	return newCacheResult(entries), nil
}

// Remove deletes cached artifacts for apps and reports what was removed.
func (s *CacheService) Remove(ctx context.Context, apps ...string) (*CacheResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := fetch.RemoveCache(s.cacheDir, apps...)
	if err != nil {
		return nil, fmt.Errorf("remove cache: %w", err)
	}
	return newCacheResult(entries), nil
}
