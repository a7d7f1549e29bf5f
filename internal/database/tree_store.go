package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/embody/internal/tree"
)

// TreeStore keeps the tree as one JSONB document per root key
// (the first two path segments, e.g. users/{uid}).
type TreeStore struct {
	db *DB
}

// NewTreeStore creates a Postgres-backed tree store
func NewTreeStore(db *DB) *TreeStore {
	return &TreeStore{db: db}
}

// Read returns the node at path. Depth-1 paths assemble every root document
// of the collection.
func (s *TreeStore) Read(ctx context.Context, path string) (any, error) {
	segments, err := tree.Split(path)
	if err != nil {
		return nil, err
	}

	switch len(segments) {
	case 0:
		return nil, fmt.Errorf("%w: cannot read the whole tree", tree.ErrShallowPath)
	case 1:
		return s.readCollection(ctx, segments[0])
	}

	root, rest, _ := tree.SplitRoot(segments)
	doc, err := s.loadDoc(ctx, s.db.DB, tree.Join(root...), false)
	if err != nil {
		return nil, err
	}
	return tree.Get(doc, rest), nil
}

// Write replaces the node at path inside one row-locked transaction.
func (s *TreeStore) Write(ctx context.Context, path string, value any) error {
	segments, err := tree.Split(path)
	if err != nil {
		return err
	}
	root, rest, err := tree.SplitRoot(segments)
	if err != nil {
		return err
	}
	normalized, err := tree.Normalize(value)
	if err != nil {
		return err
	}
	return s.mutate(ctx, tree.Join(root...), func(doc any) (any, error) {
		return tree.Set(doc, rest, normalized), nil
	})
}

// Update writes several children below path inside one transaction.
func (s *TreeStore) Update(ctx context.Context, path string, children map[string]any) error {
	segments, err := tree.Split(path)
	if err != nil {
		return err
	}
	root, rest, err := tree.SplitRoot(segments)
	if err != nil {
		return err
	}
	normalized, err := tree.NormalizeChildren(children)
	if err != nil {
		return err
	}
	return s.mutate(ctx, tree.Join(root...), func(doc any) (any, error) {
		node, err := tree.ApplyUpdate(tree.Get(doc, rest), normalized)
		if err != nil {
			return nil, err
		}
		return tree.Set(doc, rest, node), nil
	})
}

// Push generates a fresh child key for path
func (s *TreeStore) Push(ctx context.Context, path string) (string, error) {
	if _, err := tree.Split(path); err != nil {
		return "", err
	}
	return tree.NewKey()
}

// Keys lists child keys. Depth 0 lists collections, depth 1 lists root keys.
func (s *TreeStore) Keys(ctx context.Context, path string) ([]string, error) {
	segments, err := tree.Split(path)
	if err != nil {
		return nil, err
	}

	switch len(segments) {
	case 0:
		return s.queryKeys(ctx, `
			SELECT DISTINCT split_part(root_key, '/', 1) AS k
			FROM tree_roots ORDER BY k
		`)
	case 1:
		return s.queryKeys(ctx, `
			SELECT split_part(root_key, '/', 2) AS k
			FROM tree_roots WHERE split_part(root_key, '/', 1) = $1 ORDER BY k
		`, segments[0])
	}

	node, err := s.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return tree.ChildKeys(node), nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *TreeStore) loadDoc(ctx context.Context, q queryer, rootKey string, forUpdate bool) (any, error) {
	query := `SELECT doc FROM tree_roots WHERE root_key = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var raw []byte
	err := q.QueryRowContext(ctx, query, rootKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", rootKey, err)
	}
	return decodeDoc(raw)
}

// mutate locks the root row, applies fn and stores the result. A nil result
// deletes the row.
func (s *TreeStore) mutate(ctx context.Context, rootKey string, fn func(doc any) (any, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// a placeholder row gives FOR UPDATE something to lock on first write
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tree_roots (root_key, doc, version, updated_at)
		VALUES ($1, 'null'::jsonb, 0, now())
		ON CONFLICT (root_key) DO NOTHING
	`, rootKey); err != nil {
		return fmt.Errorf("failed to reserve %s: %w", rootKey, err)
	}

	doc, err := s.loadDoc(ctx, tx, rootKey, true)
	if err != nil {
		return err
	}

	next, err := fn(tree.Clone(doc))
	if err != nil {
		return err
	}

	if next == nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tree_roots WHERE root_key = $1`, rootKey); err != nil {
			return fmt.Errorf("failed to delete %s: %w", rootKey, err)
		}
	} else {
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", rootKey, err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE tree_roots SET doc = $2, version = version + 1, updated_at = now()
			WHERE root_key = $1
		`, rootKey, string(raw)); err != nil {
			return fmt.Errorf("failed to store %s: %w", rootKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", rootKey, err)
	}
	return nil
}

func (s *TreeStore) readCollection(ctx context.Context, collection string) (any, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT split_part(root_key, '/', 2), doc
		FROM tree_roots WHERE split_part(root_key, '/', 1) = $1
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", collection, err)
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan collection %s: %w", collection, err)
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			out[key] = doc
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collection %s: %w", collection, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (s *TreeStore) queryKeys(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keys: %w", err)
	}
	return keys, nil
}

func decodeDoc(raw []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode tree document: %w", err)
	}
	return doc, nil
}

var _ tree.Store = (*TreeStore)(nil)
