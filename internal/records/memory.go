package records

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used for local development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore returns an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Write(ctx context.Context, path string, body []byte) (ObjectRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cpy := make([]byte, len(body))
	copy(cpy, body)
	m.objects[path] = cpy

	return ObjectRef{Path: path, URL: "memory://" + path}, nil
}

func (m *MemoryStore) Find(ctx context.Context, prefix string) ([]ObjectRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var refs []ObjectRef
	for path := range m.objects {
		if strings.HasPrefix(path, prefix) {
			refs = append(refs, ObjectRef{Path: path, URL: "memory://" + path})
		}
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

func (m *MemoryStore) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.objects[path]
	if !ok {
		return nil, ErrObjectNotFound
	}

	cpy := make([]byte, len(body))
	copy(cpy, body)
	return cpy, nil
}
