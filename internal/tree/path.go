package tree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPath is returned for paths with empty or reserved segments
	ErrInvalidPath = errors.New("invalid tree path")
	// ErrShallowPath is returned by backends that store one document per root key
	// when an operation addresses something above a root key
	ErrShallowPath = errors.New("path is above a root key")
)

// RootDepth is the number of leading segments that identify one stored document
// in the document-per-root backends (e.g. "users/{uid}").
const RootDepth = 2

// Split parses a slash-delimited path into segments.
// Leading and trailing slashes are ignored; the empty path is the tree root.
func Split(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	segments := strings.Split(trimmed, "/")
	for _, s := range segments {
		if s == "" || strings.ContainsAny(s, ".#$[]") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// SplitRoot separates the root key segments from the remainder of the path.
func SplitRoot(segments []string) (root []string, rest []string, err error) {
	if len(segments) < RootDepth {
		return nil, nil, fmt.Errorf("%w: %q", ErrShallowPath, Join(segments...))
	}
	return segments[:RootDepth], segments[RootDepth:], nil
}
