package storage

import (
	"context"
	"strconv"
	"sync"
)

type memoryObject struct {
	content []byte
	version string
}

// MemoryStore is a process-local ContentStore with the same conditional
// write semantics as the remote backends. It backs local development and
// tests.
type MemoryStore struct {
	mu       sync.RWMutex
	objects  map[string]memoryObject
	revision uint64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
	}
}

func (m *MemoryStore) Get(ctx context.Context, path string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[path]
	if !ok {
		return nil, ErrNotFound
	}
	content := make([]byte, len(obj.content))
	copy(content, obj.content)
	return &Object{Content: content, Version: obj.version}, nil
}

func (m *MemoryStore) Put(ctx context.Context, path string, content []byte, opts PutOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.objects[path]
	switch {
	case opts.IfNoneMatch && exists:
		return "", &ConflictError{Path: path, Reason: "object already exists"}
	case opts.IfMatch != "" && !exists:
		return "", &ConflictError{Path: path, Expected: opts.IfMatch, Reason: "object does not exist"}
	case opts.IfMatch != "" && existing.version != opts.IfMatch:
		return "", &ConflictError{Path: path, Expected: opts.IfMatch, Reason: "stored version is " + existing.version}
	}

	m.revision++
	stored := make([]byte, len(content))
	copy(stored, content)
	version := "r" + strconv.FormatUint(m.revision, 10)
	m.objects[path] = memoryObject{content: stored, version: version}
	return version, nil
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
