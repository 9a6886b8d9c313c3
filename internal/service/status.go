// Package service provides the high-level operations behind the zoop
// commands: batch installs, the installed-app status scan and cache
// maintenance.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	goversion "github.com/hashicorp/go-version"
	"golang.org/x/sync/errgroup"

	"github.com/ZebulonRouseFrantzich/zoop/internal/layout"
	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
	"github.com/ZebulonRouseFrantzich/zoop/internal/state"
)

// DefaultStatusConcurrency bounds the status scan.
const DefaultStatusConcurrency = 8

// ManifestFinder looks up the latest manifest of an app.
type ManifestFinder interface {
	Lookup(bucket, app string) (*manifest.Manifest, error)
	Find(app string) (*manifest.Manifest, error)
}

// StatusService reports installed apps and whether newer versions exist
// in the local buckets.
type StatusService struct {
	layout      layout.Layout
	buckets     ManifestFinder
	clock       Clock
	concurrency int
}

// NewStatusService creates a status service. concurrency <= 0 uses
// DefaultStatusConcurrency; a nil clock uses SystemClock.
func NewStatusService(l layout.Layout, buckets ManifestFinder, clock Clock, concurrency int) *StatusService {
	if clock == nil {
		clock = SystemClock{}
	}
	if concurrency <= 0 {
		concurrency = DefaultStatusConcurrency
	}
	return &StatusService{layout: l, buckets: buckets, clock: clock, concurrency: concurrency}
}

// StatusRequest selects what to scan.
type StatusRequest struct {
	// Apps limits the scan; empty means every installed app.
	Apps []string
	// Global adds the global scope to the scan.
	Global bool
}

// AppStatus is the status of one installed app.
type AppStatus struct {
	App       string
	Scope     string
	Installed string
	Latest    string
	Bucket    string
	Outdated  bool
	// Err is set when the app could not be checked; the scan continues.
	Err error
}

// StatusResult is the outcome of a scan.
type StatusResult struct {
	Apps      []AppStatus
	CheckedAt time.Time
}

// Failed returns the statuses that carry an error.
func (r *StatusResult) Failed() []AppStatus {
	var out []AppStatus
	for _, a := range r.Apps {
		if a.Err != nil {
			out = append(out, a)
		}
	}
	return out
}

// Status scans installed apps concurrently. One app's failure is recorded
// on its AppStatus and never aborts the scan.
func (s *StatusService) Status(ctx context.Context, req StatusRequest) (*StatusResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type target struct {
		app    string
		global bool
	}
	var targets []target
	scopes := []bool{false}
	if req.Global {
		scopes = append(scopes, true)
	}
	for _, global := range scopes {
		apps, err := state.InstalledApps(s.layout, global)
		if err != nil {
			return nil, fmt.Errorf("list installed apps: %w", err)
		}
		for _, app := range apps {
			if len(req.Apps) == 0 || contains(req.Apps, app) {
				targets = append(targets, target{app: app, global: global})
			}
		}
	}

	var (
		mu       sync.Mutex
		statuses = make([]AppStatus, 0, len(targets))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, t := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			st := s.check(t.app, t.global)
			mu.Lock()
			statuses = append(statuses, st)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].App != statuses[j].App {
			return statuses[i].App < statuses[j].App
		}
		return statuses[i].Scope < statuses[j].Scope
	})
	return &StatusResult{Apps: statuses, CheckedAt: s.clock.Now()}, nil
}

func (s *StatusService) check(app string, global bool) AppStatus {
	st := AppStatus{App: app, Scope: "user"}
	if global {
		st.Scope = "global"
	}

	rec, err := state.Installed(s.layout, app, global)
	if err != nil {
		st.Err = err
		return st
	}
	st.Installed, st.Bucket = rec.Version, rec.Bucket

	var m *manifest.Manifest
	if rec.Bucket != "" {
		m, err = s.buckets.Lookup(rec.Bucket, app)
	} else {
		m, err = s.buckets.Find(app)
	}
	if err != nil {
		st.Err = fmt.Errorf("find manifest: %w", err)
		return st
	}
	st.Latest = m.Version
	st.Outdated = Outdated(rec.Version, m.Version)
	return st
}

// Outdated reports whether latest is newer than installed. Versions that
// do not parse as semantic versions are compared as strings; nightly
// builds are never outdated.
func Outdated(installed, latest string) bool {
	if manifest.IsNightly(installed) || manifest.IsNightly(latest) {
		return false
	}
	iv, ierr := goversion.NewVersion(installed)
	lv, lerr := goversion.NewVersion(latest)
	if ierr == nil && lerr == nil {
		return iv.LessThan(lv)
	}
	return installed != latest
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if strings.EqualFold(it, s) {
			return true
		}
	}
	return false
}
