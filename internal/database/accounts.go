package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/session"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// AccountRepository stores login accounts
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts an account. A taken email yields session.ErrAccountExists.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (uid, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		account.UID,
		account.Email,
		account.PasswordHash,
		now,
		now,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", account.Email, session.ErrAccountExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByEmail retrieves an account by normalized email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `
		SELECT uid, email, password_hash, created_at, updated_at
		FROM accounts WHERE email = $1
	`, email)
}

// GetByUID retrieves an account by uid
func (r *AccountRepository) GetByUID(ctx context.Context, uid string) (*models.Account, error) {
	return r.getOne(ctx, `
		SELECT uid, email, password_hash, created_at, updated_at
		FROM accounts WHERE uid = $1
	`, uid)
}

func (r *AccountRepository) getOne(ctx context.Context, query, arg string) (*models.Account, error) {
	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.UID,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", arg, session.ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

var _ session.AccountStore = (*AccountRepository)(nil)
