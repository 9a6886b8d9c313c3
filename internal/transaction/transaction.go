// Package transaction provides cross-process lock files and the install
// journal: an append-only record of the side effects one install run
// performed, written atomically after every stage so a failed run leaves
// behind an accurate list of what to clean up by hand.
package transaction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State represents the current state of a journal or one of its stages.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateSkipped    State = "skipped"
)

// Journal records one install run.
type Journal struct {
	Version    int       `json:"version"` // Schema version for future evolution
	ID         string    `json:"id"`
	App        string    `json:"app"`
	AppVersion string    `json:"app_version"`
	Scope      string    `json:"scope"`
	Timestamp  time.Time `json:"timestamp"`
	State      State     `json:"state"`
	Stages     []Stage   `json:"stages"`
	LastError  string    `json:"last_error,omitempty"`
}

// Stage is one pipeline step and the paths or settings it touched.
type Stage struct {
	Name      string   `json:"name"`
	State     State    `json:"state"`
	Created   []string `json:"created,omitempty"`
	Changed   []string `json:"changed,omitempty"`
	LastError string   `json:"last_error,omitempty"`
}

// New creates a pending journal.
func New(app, version, scope string, now time.Time) *Journal {
	return &Journal{
		Version:    1,
		ID:         uuid.New().String(),
		App:        app,
		AppVersion: version,
		Scope:      scope,
		Timestamp:  now.UTC(),
		State:      StatePending,
		Stages:     []Stage{},
	}
}

func (j *Journal) stage(name string) *Stage {
	for i := range j.Stages {
		if j.Stages[i].Name == name {
			return &j.Stages[i]
		}
	}
	j.Stages = append(j.Stages, Stage{Name: name, State: StatePending})
	return &j.Stages[len(j.Stages)-1]
}

// Begin marks a stage as in progress.
func (j *Journal) Begin(name string) {
	j.State = StateInProgress
	j.stage(name).State = StateInProgress
}

// Created records paths a stage created.
func (j *Journal) Created(name string, paths ...string) {
	s := j.stage(name)
	s.Created = append(s.Created, paths...)
}

// Changed records pre-existing paths or settings a stage modified.
func (j *Journal) Changed(name string, items ...string) {
	s := j.stage(name)
	s.Changed = append(s.Changed, items...)
}

// Complete marks a stage as completed.
func (j *Journal) Complete(name string) {
	s := j.stage(name)
	s.State = StateCompleted
	s.LastError = ""
}

// Skip marks a stage as deliberately not run.
func (j *Journal) Skip(name string) {
	j.stage(name).State = StateSkipped
}

// Fail marks a stage and the journal as failed.
func (j *Journal) Fail(name string, err error) {
	s := j.stage(name)
	s.State = StateFailed
	if err != nil {
		s.LastError = err.Error()
		j.LastError = err.Error()
	}
	j.State = StateFailed
}

// Finish marks the journal as completed.
func (j *Journal) Finish() {
	j.State = StateCompleted
	j.LastError = ""
}

// CreatedPaths returns all paths created by the run, de-duplicated and sorted.
func (j *Journal) CreatedPaths() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range j.Stages {
		for _, p := range s.Created {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// FileName returns the journal's file name.
func (j *Journal) FileName() string {
	return fmt.Sprintf("install-%s-%s.json", sanitize(j.App), j.ID)
}

// Save writes the journal to dir atomically and returns its path.
// Uses write-then-rename pattern for atomicity.
func (j *Journal) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create journal directory: %w", err)
	}

	finalPath := filepath.Join(dir, j.FileName())
	tmpPath := finalPath + ".tmp"

	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal journal: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return "", fmt.Errorf("write temporary journal file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename journal file: %w", err)
	}

	// Sync directory for durability
	df, err := os.Open(dir)
	if err == nil {
		if syncErr := df.Sync(); syncErr != nil {
			df.Close()
			return "", fmt.Errorf("sync directory: %w", syncErr)
		}
		df.Close()
	}

	return finalPath, nil
}

// Load reads a journal from disk.
func Load(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read journal file: %w", err)
	}

	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal journal: %w", err)
	}

	return &j, nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
