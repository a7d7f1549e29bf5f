// Package cloudstore keeps the tree in Google Cloud Firestore: the first path
// segment names a collection, the second a document holding that subtree.
package cloudstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/benvon/embody/internal/tree"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	docField       = "doc"
	versionField   = "version"
	updatedAtField = "updatedAt"
)

// FirestoreTreeStore implements tree.Store on Firestore documents
type FirestoreTreeStore struct {
	client *firestore.Client
}

// NewFirestoreTreeStore connects to the project's default database
func NewFirestoreTreeStore(ctx context.Context, projectID string) (*FirestoreTreeStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &FirestoreTreeStore{client: client}, nil
}

// Close releases the client
func (s *FirestoreTreeStore) Close() error {
	return s.client.Close()
}

// Read returns the node at path. Depth-1 paths assemble the whole collection.
func (s *FirestoreTreeStore) Read(ctx context.Context, path string) (any, error) {
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
	snap, err := s.client.Collection(root[0]).Doc(root[1]).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := docOf(snap)
	if err != nil {
		return nil, err
	}
	return tree.Get(doc, rest), nil
}

// Write replaces the node at path in a transaction
func (s *FirestoreTreeStore) Write(ctx context.Context, path string, value any) error {
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
	return s.mutate(ctx, root, func(doc any) (any, error) {
		return tree.Set(doc, rest, normalized), nil
	})
}

// Update writes several children below path in one transaction
func (s *FirestoreTreeStore) Update(ctx context.Context, path string, children map[string]any) error {
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
	return s.mutate(ctx, root, func(doc any) (any, error) {
		node, err := tree.ApplyUpdate(tree.Get(doc, rest), normalized)
		if err != nil {
			return nil, err
		}
		return tree.Set(doc, rest, node), nil
	})
}

// Push generates a fresh child key for path
func (s *FirestoreTreeStore) Push(ctx context.Context, path string) (string, error) {
	if _, err := tree.Split(path); err != nil {
		return "", err
	}
	return tree.NewKey()
}

// Keys lists child keys. Depth 0 lists collections, depth 1 lists document ids.
func (s *FirestoreTreeStore) Keys(ctx context.Context, path string) ([]string, error) {
	segments, err := tree.Split(path)
	if err != nil {
		return nil, err
	}

	switch len(segments) {
	case 0:
		return s.collectionIDs(ctx)
	case 1:
		return s.documentIDs(ctx, segments[0])
	}

	node, err := s.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return tree.ChildKeys(node), nil
}

func (s *FirestoreTreeStore) mutate(ctx context.Context, root []string, fn func(doc any) (any, error)) error {
	ref := s.client.Collection(root[0]).Doc(root[1])
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var doc any
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			if doc, err = docOf(snap); err != nil {
				return err
			}
		}

		next, err := fn(doc)
		if err != nil {
			return err
		}
		if next == nil {
			return tx.Delete(ref)
		}
		return tx.Set(ref, map[string]any{
			docField:       next,
			versionField:   firestore.Increment(1),
			updatedAtField: firestore.ServerTimestamp,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", tree.Join(root...), err)
	}
	return nil
}

func (s *FirestoreTreeStore) readCollection(ctx context.Context, collection string) (any, error) {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	out := make(map[string]any)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
		}
		doc, err := docOf(snap)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			out[snap.Ref.ID] = doc
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (s *FirestoreTreeStore) documentIDs(ctx context.Context, collection string) ([]string, error) {
	iter := s.client.Collection(collection).DocumentRefs(ctx)
	var ids []string
	for {
		ref, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", collection, err)
		}
		ids = append(ids, ref.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FirestoreTreeStore) collectionIDs(ctx context.Context) ([]string, error) {
	iter := s.client.Collections(ctx)
	var ids []string
	for {
		col, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list collections: %w", err)
		}
		ids = append(ids, col.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// docOf extracts the stored subtree in its JSON shape (Firestore returns int64
// for whole numbers).
func docOf(snap *firestore.DocumentSnapshot) (any, error) {
	if snap == nil || !snap.Exists() {
		return nil, nil
	}
	raw, ok := snap.Data()[docField]
	if !ok {
		return nil, nil
	}
	doc, err := tree.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", snap.Ref.ID, err)
	}
	return doc, nil
}

var _ tree.Store = (*FirestoreTreeStore)(nil)
