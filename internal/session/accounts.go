package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/embody/internal/models"
)

// AccountStore persists login accounts.
// Create returns an error wrapping ErrAccountExists for a taken email;
// GetByEmail returns one wrapping ErrAccountNotFound for an unknown email.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByUID(ctx context.Context, uid string) (*models.Account, error)
}

// MemoryAccountStore keeps accounts in process memory
type MemoryAccountStore struct {
	mu      sync.RWMutex
	byEmail map[string]*models.Account
	byUID   map[string]*models.Account
}

// NewMemoryAccountStore creates an empty account store
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		byEmail: make(map[string]*models.Account),
		byUID:   make(map[string]*models.Account),
	}
}

// Create stores a new account
func (s *MemoryAccountStore) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[account.Email]; ok {
		return fmt.Errorf("%s: %w", account.Email, ErrAccountExists)
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	stored := *account
	s.byEmail[account.Email] = &stored
	s.byUID[account.UID] = &stored
	return nil
}

// GetByEmail looks an account up by its normalized email
func (s *MemoryAccountStore) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%s: %w", email, ErrAccountNotFound)
	}
	out := *account
	return &out, nil
}

// GetByUID looks an account up by uid
func (s *MemoryAccountStore) GetByUID(_ context.Context, uid string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byUID[uid]
	if !ok {
		return nil, fmt.Errorf("%s: %w", uid, ErrAccountNotFound)
	}
	out := *account
	return &out, nil
}
