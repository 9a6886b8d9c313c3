// Package envstore persists environment variables for a scope. On Windows
// the registry is the store; elsewhere a JSON file under the zoop root
// stands in for it and is exported to shells by `zoop activate`.
package envstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZebulonRouseFrantzich/zoop/internal/transaction"
)

// Store reads and writes persistent variables. Set with an empty value
// removes the variable.
type Store interface {
	Get(name string) (string, bool, error)
	Set(name, value string) error
}

// Lister is implemented by stores that can enumerate their variables.
type Lister interface {
	List() (map[string]string, error)
}

// WriteError reports a failed write to the store.
type WriteError struct {
	Name string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write environment variable %s: %v", e.Name, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// processMu serializes store updates inside this process; the lock file
// serializes them across processes.
var processMu sync.Mutex

// Locked wraps a Store so every read-modify-write runs in a critical section.
type Locked struct {
	store   Store
	lockDir string
	name    string
}

// NewLocked guards store with a lock file named name in lockDir.
func NewLocked(store Store, lockDir, name string) *Locked {
	return &Locked{store: store, lockDir: lockDir, name: name}
}

// Store returns the underlying store for read-only access.
func (l *Locked) Store() Store {
	return l.store
}

// Update runs fn with exclusive access to the store.
func (l *Locked) Update(ctx context.Context, fn func(Store) error) error {
	processMu.Lock()
	defer processMu.Unlock()

	lock, err := transaction.WaitLock(ctx, l.lockDir, l.name, 20*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire environment lock: %w", err)
	}
	defer lock.Release()

	return fn(l.store)
}
