package tree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Normalize converts v into the JSON-like shape kept in the tree
// (map[string]any, []any, string, float64, bool) and prunes empty children.
func Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode tree value: %w", err)
	}
	return prune(out), nil
}

// Decode copies a tree node into out using its JSON tags.
func Decode(node any, out any) error {
	raw, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to encode tree node: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode tree node: %w", err)
	}
	return nil
}

// Get walks segments from node. Arrays are addressable by numeric index.
func Get(node any, segments []string) any {
	cur := node
	for _, seg := range segments {
		switch n := cur.(type) {
		case map[string]any:
			cur = n[seg]
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(n) {
				return nil
			}
			cur = n[idx]
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Set stores value at segments below node and returns the new node.
// A nil value deletes; objects left without children disappear.
// Writing below a scalar replaces it with an object.
func Set(node any, segments []string, value any) any {
	if len(segments) == 0 {
		return value
	}
	var m map[string]any
	switch n := node.(type) {
	case map[string]any:
		m = n
	case []any:
		m = arrayToMap(n)
	default:
		m = make(map[string]any)
	}
	child := Set(m[segments[0]], segments[1:], value)
	if child == nil {
		delete(m, segments[0])
	} else {
		m[segments[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// ChildKeys returns the sorted keys directly below node.
func ChildKeys(node any) []string {
	var keys []string
	switch n := node.(type) {
	case map[string]any:
		keys = make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	case []any:
		for i, v := range n {
			if v != nil {
				keys = append(keys, strconv.Itoa(i))
			}
		}
	}
	return keys
}

// Clone deep-copies a tree node.
func Clone(node any) any {
	switch n := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[k] = Clone(v)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = Clone(v)
		}
		return out
	default:
		return n
	}
}

func arrayToMap(arr []any) map[string]any {
	m := make(map[string]any, len(arr))
	for i, v := range arr {
		if v != nil {
			m[strconv.Itoa(i)] = v
		}
	}
	return m
}

func prune(node any) any {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			pv := prune(v)
			if pv == nil {
				delete(n, k)
			} else {
				n[k] = pv
			}
		}
		if len(n) == 0 {
			return nil
		}
		return n
	case []any:
		if len(n) == 0 {
			return nil
		}
		for i, v := range n {
			n[i] = prune(v)
		}
		return n
	default:
		return n
	}
}
