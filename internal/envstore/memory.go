package envstore

import "sync"

// MemoryStore is an in-process Store, used when nothing should persist.
type MemoryStore struct {
	mu     sync.Mutex
	vars   map[string]string
	Writes int
}

// NewMemoryStore returns a store seeded with vars.
func NewMemoryStore(vars map[string]string) *MemoryStore {
	m := &MemoryStore{vars: make(map[string]string, len(vars))}
	for k, v := range vars {
		m.vars[k] = v
	}
	return m
}

func (m *MemoryStore) Get(name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vars[name]
	return v, ok, nil
}

func (m *MemoryStore) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++
	if value == "" {
		delete(m.vars, name)
		return nil
	}
	m.vars[name] = value
	return nil
}

func (m *MemoryStore) List() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.vars))
	for k, v := range m.vars {
		out[k] = v
	}
	return out, nil
}
