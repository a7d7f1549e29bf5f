// Package todos manages a user's live todo collection in the tree store.
package todos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/tree"
	"github.com/benvon/embody/internal/validation"
	"go.uber.org/zap"
)

var (
	// ErrInvalidTodo is returned when a label is empty or points is not an integer
	ErrInvalidTodo = errors.New("invalid todo")
	// ErrTodoNotFound is returned when toggling an id that is not in the collection
	ErrTodoNotFound = errors.New("todo not found")
)

// MaxLabelLength bounds the sanitized label
const MaxLabelLength = 500

// Observer is notified after every successful mutation of a user's collection
type Observer interface {
	Changed(ctx context.Context, uid string)
}

// Store creates, toggles and deletes todo items under users/{uid}/todos
type Store struct {
	store    tree.Store
	observer Observer
	logger   *zap.Logger
}

// NewStore creates a todo store. observer may be nil.
func NewStore(store tree.Store, observer Observer, logger *zap.Logger) *Store {
	return &Store{store: store, observer: observer, logger: logger}
}

// ParsePoints accepts an integer or a numeric string with an optional sign.
// The magnitude may not exceed models.MaxPoints.
func ParsePoints(v any) (int, error) {
	switch p := v.(type) {
	case int:
		return checkPoints(int64(p))
	case int64:
		return checkPoints(p)
	case float64:
		if p != math.Trunc(p) || math.IsInf(p, 0) {
			return 0, fmt.Errorf("%w: points %v is not an integer", ErrInvalidTodo, p)
		}
		if math.Abs(p) > models.MaxPoints {
			return 0, fmt.Errorf("%w: points %v out of range", ErrInvalidTodo, p)
		}
		return int(p), nil
	case json.Number:
		return parsePointsString(p.String())
	case string:
		return parsePointsString(p)
	default:
		return 0, fmt.Errorf("%w: points must be a number", ErrInvalidTodo)
	}
}

func parsePointsString(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: points %q is not an integer", ErrInvalidTodo, s)
	}
	return checkPoints(n)
}

func checkPoints(n int64) (int, error) {
	if n > models.MaxPoints || n < -models.MaxPoints {
		return 0, fmt.Errorf("%w: points %d out of range", ErrInvalidTodo, n)
	}
	return int(n), nil
}

// List returns the live collection. A missing or malformed collection is
// empty; the malformed case is logged.
func (s *Store) List(ctx context.Context, uid string) (models.Todos, error) {
	node, err := s.store.Read(ctx, profile.TodosPath(uid))
	if err != nil {
		return nil, fmt.Errorf("failed to read todos for %s: %w", uid, err)
	}
	todos, err := models.TodosFromNode(node)
	if err != nil {
		s.logger.Warn("todos_collection_malformed",
			zap.String("uid", uid),
			zap.Error(err))
	}
	return todos, nil
}

// Add creates an unchecked item under a fresh key and returns it with the
// refetched collection.
func (s *Store) Add(ctx context.Context, uid, label string, points int) (*models.TodoItem, models.Todos, error) {
	label = validation.SanitizeText(label)
	if label == "" {
		return nil, nil, fmt.Errorf("%w: label is required", ErrInvalidTodo)
	}
	if len(label) > MaxLabelLength {
		return nil, nil, fmt.Errorf("%w: label exceeds %d characters", ErrInvalidTodo, MaxLabelLength)
	}

	id, err := s.store.Push(ctx, profile.TodosPath(uid))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate todo key: %w", err)
	}

	item := &models.TodoItem{ID: id, Label: label, Points: points, Checked: false}
	if err := s.store.Write(ctx, profile.TodoPath(uid, id), item); err != nil {
		return nil, nil, fmt.Errorf("failed to write todo %s: %w", id, err)
	}

	todos, err := s.settle(ctx, uid)
	if err != nil {
		return item, nil, err
	}
	return item, todos, nil
}

// Toggle flips the checked flag of an item.
func (s *Store) Toggle(ctx context.Context, uid, id string) (*models.TodoItem, models.Todos, error) {
	node, err := s.store.Read(ctx, profile.TodoPath(uid, id))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read todo %s: %w", id, err)
	}
	if node == nil {
		return nil, nil, fmt.Errorf("todo %s: %w", id, ErrTodoNotFound)
	}

	var item models.TodoItem
	if err := tree.Decode(node, &item); err != nil {
		return nil, nil, fmt.Errorf("failed to decode todo %s: %w", id, err)
	}
	item.ID = id
	item.Checked = !item.Checked

	if err := s.store.Write(ctx, profile.CheckedPath(uid, id), item.Checked); err != nil {
		return nil, nil, fmt.Errorf("failed to write todo %s: %w", id, err)
	}

	todos, err := s.settle(ctx, uid)
	if err != nil {
		return &item, nil, err
	}
	return &item, todos, nil
}

// Delete removes an item. Deleting an unknown id leaves the collection unchanged.
func (s *Store) Delete(ctx context.Context, uid, id string) (models.Todos, error) {
	node, err := s.store.Read(ctx, profile.TodoPath(uid, id))
	if err != nil {
		return nil, fmt.Errorf("failed to read todo %s: %w", id, err)
	}
	if node == nil {
		return s.List(ctx, uid)
	}

	if err := s.store.Write(ctx, profile.TodoPath(uid, id), nil); err != nil {
		return nil, fmt.Errorf("failed to delete todo %s: %w", id, err)
	}
	return s.settle(ctx, uid)
}

// settle refetches the collection after a write and notifies the observer.
func (s *Store) settle(ctx context.Context, uid string) (models.Todos, error) {
	if s.observer != nil {
		s.observer.Changed(ctx, uid)
	}
	todos, err := s.List(ctx, uid)
	if err != nil {
		s.logger.Error("todos_refetch_failed",
			zap.String("uid", uid),
			zap.Error(err))
		return nil, err
	}
	return todos, nil
}
