// Package profile reads and writes the per-account user record.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/tree"
	"go.uber.org/zap"
)

// ErrProfileNotFound is returned when no record exists for a uid
var ErrProfileNotFound = errors.New("profile not found")

// Settings is a partial update of the editable profile fields.
// Nil fields are left untouched.
type Settings struct {
	Name       *string
	EmbodyGoal *string
	PointsGoal *int
}

// Empty reports whether the update carries no fields
func (s Settings) Empty() bool {
	return s.Name == nil && s.EmbodyGoal == nil && s.PointsGoal == nil
}

// Service manages user records in the tree store
type Service struct {
	store  tree.Store
	logger *zap.Logger
}

// NewService creates a profile service
func NewService(store tree.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Get loads the user record.
func (s *Service) Get(ctx context.Context, uid string) (*models.User, error) {
	node, err := s.store.Read(ctx, UserPath(uid))
	if err != nil {
		return nil, fmt.Errorf("failed to read user %s: %w", uid, err)
	}
	if node == nil {
		return nil, fmt.Errorf("user %s: %w", uid, ErrProfileNotFound)
	}

	var user models.User
	if err := tree.Decode(node, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", uid, err)
	}
	if user.UID == "" {
		user.UID = uid
	}
	if _, err := models.TodosFromNode(tree.Get(node, []string{"todos"})); err != nil {
		s.logger.Warn("todos_collection_malformed",
			zap.String("uid", uid),
			zap.Error(err))
	}
	return &user, nil
}

// Create writes the initial record for a new account: points goal zero,
// no todos.
func (s *Service) Create(ctx context.Context, identity models.Identity, name, embodyGoal string) (*models.User, error) {
	user := &models.User{
		UID:        identity.UID,
		Email:      identity.Email,
		Name:       strings.TrimSpace(name),
		EmbodyGoal: strings.TrimSpace(embodyGoal),
		PointsGoal: 0,
	}
	if err := s.store.Write(ctx, UserPath(identity.UID), user); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", identity.UID, err)
	}
	s.logger.Info("user_profile_created", zap.String("uid", identity.UID))
	return user, nil
}

// UpdateSettings writes each provided field at its own path and returns the
// refreshed record.
func (s *Service) UpdateSettings(ctx context.Context, uid string, settings Settings) (*models.User, error) {
	if settings.Empty() {
		return s.Get(ctx, uid)
	}

	children := make(map[string]any, 3)
	if settings.Name != nil {
		children["name"] = strings.TrimSpace(*settings.Name)
	}
	if settings.EmbodyGoal != nil {
		children["embodyGoal"] = strings.TrimSpace(*settings.EmbodyGoal)
	}
	if settings.PointsGoal != nil {
		children["pointsGoal"] = *settings.PointsGoal
	}

	if err := s.store.Update(ctx, UserPath(uid), children); err != nil {
		return nil, fmt.Errorf("failed to update settings for %s: %w", uid, err)
	}
	return s.Get(ctx, uid)
}

// List returns the uids of every stored user record
func (s *Service) List(ctx context.Context) ([]string, error) {
	uids, err := s.store.Keys(ctx, UsersPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return uids, nil
}
