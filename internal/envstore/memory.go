package envstore

import (
	"context"
	"slices"
)

// MemoryStore is an in-memory Store for tests. It counts writes so tests
// can assert that repeated runs leave it untouched.
type MemoryStore struct {
	Bindings map[string]string
	Path     []string
	Env      Env

	// Writes counts mutations.
	Writes int
}

// NewMemoryStore returns an empty store that mirrors changes into env.
func NewMemoryStore(env Env) *MemoryStore {
	if env == nil {
		env = MapEnv{}
	}
	return &MemoryStore{Bindings: map[string]string{}, Env: env}
}

func (m *MemoryStore) Location() string { return "memory" }

func (m *MemoryStore) Lookup(_ context.Context, name string) (string, bool, error) {
	v, ok := m.Bindings[name]
	return v, ok, nil
}

func (m *MemoryStore) EnsureBinding(_ context.Context, b Binding) (bool, error) {
	changed := false
	if cur, ok := m.Bindings[b.Name]; !ok || cur != b.Value {
		m.Bindings[b.Name] = b.Value
		m.Writes++
		changed = true
	}
	return changed, m.Env.Setenv(b.Name, b.Value)
}

func (m *MemoryStore) EnsurePathEntry(_ context.Context, dir string) (bool, error) {
	if slices.Contains(m.Path, dir) || slices.Contains(SplitPath(m.Env.Getenv("PATH"), ':'), dir) {
		return false, nil
	}
	m.Path = append(m.Path, dir)
	m.Writes++
	return true, appendLivePath(m.Env, dir, ':')
}

func (m *MemoryStore) PathEntries(context.Context) ([]string, error) {
	return slices.Clone(m.Path), nil
}
