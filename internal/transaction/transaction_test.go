package transaction

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNewJournal(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	j := New("git", "2.45.1", "user", now)

	if j.Version != 1 {
		t.Errorf("expected version 1, got %d", j.Version)
	}
	if j.ID == "" {
		t.Error("expected non-empty ID")
	}
	if j.State != StatePending {
		t.Errorf("expected state pending, got %s", j.State)
	}
	if !j.Timestamp.Equal(now) || j.Timestamp.Location() != time.UTC {
		t.Errorf("expected UTC timestamp equal to %v, got %v", now, j.Timestamp)
	}

	other := New("git", "2.45.1", "user", now)
	if other.ID == j.ID {
		t.Error("expected unique IDs")
	}
}

func TestJournalStages(t *testing.T) {
	j := New("git", "2.45.1", "user", time.Now())

	j.Begin("download")
	j.Created("download", "/cache/git#2.45.1#git.zip")
	j.Complete("download")

	j.Begin("extract")
	j.Created("extract", "/apps/git/2.45.1", "/cache/git#2.45.1#git.zip")
	j.Fail("extract", errors.New("bad archive"))

	if j.State != StateFailed {
		t.Errorf("expected failed journal, got %s", j.State)
	}
	if j.LastError != "bad archive" {
		t.Errorf("unexpected last error %q", j.LastError)
	}
	if len(j.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(j.Stages))
	}
	if j.Stages[0].State != StateCompleted {
		t.Errorf("download stage: got %s", j.Stages[0].State)
	}
	if j.Stages[1].State != StateFailed || j.Stages[1].LastError != "bad archive" {
		t.Errorf("extract stage: got %+v", j.Stages[1])
	}

	want := []string{"/apps/git/2.45.1", "/cache/git#2.45.1#git.zip"}
	if got := j.CreatedPaths(); !reflect.DeepEqual(got, want) {
		t.Errorf("CreatedPaths() = %v, want %v", got, want)
	}
}

func TestJournalSkipAndFinish(t *testing.T) {
	j := New("git", "2.45.1", "user", time.Now())
	j.Skip("shortcuts")
	j.Finish()

	if j.State != StateCompleted {
		t.Errorf("expected completed, got %s", j.State)
	}
	if j.Stages[0].State != StateSkipped {
		t.Errorf("expected skipped stage, got %s", j.Stages[0].State)
	}
}

func TestJournalSaveLoad(t *testing.T) {
	t.Run("saves journal atomically", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "journal")
		j := New("git", "2.45.1", "global", time.Now())
		j.Begin("download")
		j.Changed("download", "HKLM:PATH")

		path, err := j.Save(dir)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if filepath.Base(path) != "install-git-"+j.ID+".json" {
			t.Errorf("unexpected file name %s", filepath.Base(path))
		}
		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Error("temporary file should not remain")
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read journal: %v", err)
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("journal is not valid JSON: %v", err)
		}
		if raw["app"] != "git" || raw["scope"] != "global" {
			t.Errorf("unexpected journal contents: %v", raw)
		}

		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.ID != j.ID || loaded.State != StateInProgress {
			t.Errorf("loaded journal mismatch: %+v", loaded)
		}
		if got := loaded.Stages[0].Changed; len(got) != 1 || got[0] != "HKLM:PATH" {
			t.Errorf("changed items not persisted: %v", got)
		}
	})

	t.Run("overwrites on repeated save", func(t *testing.T) {
		dir := t.TempDir()
		j := New("git", "2.45.1", "user", time.Now())

		first, err := j.Save(dir)
		if err != nil {
			t.Fatalf("first Save failed: %v", err)
		}
		j.Finish()
		second, err := j.Save(dir)
		if err != nil {
			t.Fatalf("second Save failed: %v", err)
		}
		if first != second {
			t.Errorf("expected same path, got %s and %s", first, second)
		}

		loaded, err := Load(second)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.State != StateCompleted {
			t.Errorf("expected completed, got %s", loaded.State)
		}
	})

	t.Run("sanitizes app name in file name", func(t *testing.T) {
		j := New("../evil app", "1.0", "user", time.Now())
		if strings.ContainsAny(j.FileName(), "/\\ ") {
			t.Errorf("file name not sanitized: %s", j.FileName())
		}
	})

	t.Run("load reports missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
			t.Error("expected error for missing journal")
		}
	})

	t.Run("load reports corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		os.WriteFile(path, []byte("{"), 0600)
		if _, err := Load(path); err == nil {
			t.Error("expected error for corrupt journal")
		}
	})
}
