package envstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FileStore keeps variables in a JSON object on disk. Each Set rewrites the
// whole file atomically.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read environment file: %w", err)
	}
	vars := map[string]string{}
	if len(data) == 0 {
		return vars, nil
	}
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("parse environment file %s: %w", f.path, err)
	}
	return vars, nil
}

// Get returns a variable.
func (f *FileStore) Get(name string) (string, bool, error) {
	vars, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := vars[name]
	return v, ok, nil
}

// List returns every variable.
func (f *FileStore) List() (map[string]string, error) {
	return f.load()
}

// Names returns the variable names in sorted order.
func (f *FileStore) Names() ([]string, error) {
	vars, err := f.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

// Set writes or, for an empty value, removes a variable.
func (f *FileStore) Set(name, value string) error {
	vars, err := f.load()
	if err != nil {
		return &WriteError{Name: name, Err: err}
	}
	if value == "" {
		delete(vars, name)
	} else {
		vars[name] = value
	}

	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return &WriteError{Name: name, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return &WriteError{Name: name, Err: err}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &WriteError{Name: name, Err: err}
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return &WriteError{Name: name, Err: err}
	}
	return nil
}
