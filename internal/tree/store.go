package tree

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Store is a tree-structured key/value store addressed by slash-delimited paths.
type Store interface {
	// Read returns the node at path, or nil when nothing is stored there
	Read(ctx context.Context, path string) (any, error)

	// Write replaces the node at path; a nil value deletes it
	Write(ctx context.Context, path string, value any) error

	// Update writes several children below path in one atomic step.
	// Child keys may themselves be slash-delimited relative paths.
	Update(ctx context.Context, path string, children map[string]any) error

	// Push returns a fresh, unique, time-ordered child key for path without writing
	Push(ctx context.Context, path string) (string, error)

	// Keys returns the sorted child keys of the node at path
	Keys(ctx context.Context, path string) ([]string, error)
}

// NewKey generates a child key. UUIDv7 keys sort by creation time.
func NewKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return id.String(), nil
}

// ApplyUpdate applies a multi-child update to node and returns the new node.
// Values must already be normalized.
func ApplyUpdate(node any, children map[string]any) (any, error) {
	for rel, value := range children {
		segments, err := Split(rel)
		if err != nil {
			return nil, err
		}
		if len(segments) == 0 {
			return nil, fmt.Errorf("%w: empty update key", ErrInvalidPath)
		}
		node = Set(node, segments, value)
	}
	return node, nil
}

// NormalizeChildren normalizes every value of an update map.
func NormalizeChildren(children map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(children))
	for k, v := range children {
		nv, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("child %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}
