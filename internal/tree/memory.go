package tree

import (
	"context"
	"sync"
)

// MemoryStore keeps the whole tree in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	root any
}

// NewMemoryStore creates an empty in-memory tree
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Read returns a copy of the node at path.
func (s *MemoryStore) Read(ctx context.Context, path string) (any, error) {
	segments, err := Split(path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Clone(Get(s.root, segments)), nil
}

// Write replaces the node at path.
func (s *MemoryStore) Write(ctx context.Context, path string, value any) error {
	segments, err := Split(path)
	if err != nil {
		return err
	}
	normalized, err := Normalize(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = Set(s.root, segments, normalized)
	return nil
}

// Update writes several children below path under one lock.
func (s *MemoryStore) Update(ctx context.Context, path string, children map[string]any) error {
	segments, err := Split(path)
	if err != nil {
		return err
	}
	normalized, err := NormalizeChildren(children)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	node, err := ApplyUpdate(Clone(Get(s.root, segments)), normalized)
	if err != nil {
		return err
	}
	s.root = Set(s.root, segments, node)
	return nil
}

// Push generates a child key.
func (s *MemoryStore) Push(ctx context.Context, path string) (string, error) {
	if _, err := Split(path); err != nil {
		return "", err
	}
	return NewKey()
}

// Keys lists the children of path.
func (s *MemoryStore) Keys(ctx context.Context, path string) ([]string, error) {
	segments, err := Split(path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ChildKeys(Get(s.root, segments)), nil
}

var _ Store = (*MemoryStore)(nil)
