// Package session is the first-party auth provider: accounts, signed session
// tokens, revocation, and session-change notifications driving the Gate.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

// EventKind names a session change
type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
	EventExpired   EventKind = "expired"
)

// Event is delivered to session-change subscribers
type Event struct {
	Kind      EventKind       `json:"kind"`
	SessionID string          `json:"session_id"`
	Identity  models.Identity `json:"identity"`
}

// Ends reports whether the event terminates its session
func (e Event) Ends() bool {
	return e.Kind == EventSignedOut || e.Kind == EventExpired
}

// Notifier delivers session-change events until unsubscribed
type Notifier interface {
	OnSessionChange(callback func(Event)) (unsubscribe func())
}

// Provider creates accounts, issues sessions and reports session changes
type Provider struct {
	accounts    AccountStore
	tokens      *TokenIssuer
	revocations RevocationStore
	logger      *zap.Logger
	hashCost    int

	mu          sync.Mutex
	nextSubID   int
	subscribers map[int]func(Event)
	expiry      map[string]*time.Timer
	closed      bool
}

// NewProvider wires an auth provider
func NewProvider(accounts AccountStore, tokens *TokenIssuer, revocations RevocationStore, logger *zap.Logger) *Provider {
	return &Provider{
		accounts:    accounts,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
		hashCost:    bcrypt.DefaultCost,
		subscribers: make(map[int]func(Event)),
		expiry:      make(map[string]*time.Timer),
	}
}

// SetHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (p *Provider) SetHashCost(cost int) {
	p.hashCost = cost
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount registers an email/password account and signs it in.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (*models.Credential, error) {
	email = NormalizeEmail(email)
	if err := validation.Validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEmail, email)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: minimum %d characters", ErrWeakPassword, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	p.logger.Info("account_created", zap.String("uid", account.UID))
	return p.startSession(models.Identity{UID: account.UID, Email: account.Email})
}

// SignIn verifies credentials and starts a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*models.Credential, error) {
	email = NormalizeEmail(email)
	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return p.startSession(models.Identity{UID: account.UID, Email: account.Email})
}

// Authenticate resolves a token to its live session. Resumed sessions get an
// expiry timer so subscribers learn when they lapse.
func (p *Provider) Authenticate(ctx context.Context, token string) (*Session, error) {
	sess, err := p.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	revoked, err := p.revocations.IsRevoked(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrSessionRevoked
	}

	p.armExpiry(sess.ID, sess.Identity, sess.ExpiresAt)
	return sess, nil
}

// SignOut revokes the session for the rest of its lifetime
func (p *Provider) SignOut(ctx context.Context, sess *Session) error {
	if err := p.revocations.Revoke(ctx, sess.ID, time.Until(sess.ExpiresAt)); err != nil {
		return err
	}

	p.mu.Lock()
	if t, ok := p.expiry[sess.ID]; ok {
		t.Stop()
		delete(p.expiry, sess.ID)
	}
	p.mu.Unlock()

	p.logger.Info("session_signed_out", zap.String("uid", sess.Identity.UID))
	p.publish(Event{Kind: EventSignedOut, SessionID: sess.ID, Identity: sess.Identity})
	return nil
}

// OnSessionChange subscribes to session events. The returned function unsubscribes.
func (p *Provider) OnSessionChange(callback func(Event)) func() {
	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = callback
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subscribers, id)
			p.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions
func (p *Provider) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers)
}

// Close stops every expiry timer
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for id, t := range p.expiry {
		t.Stop()
		delete(p.expiry, id)
	}
}

func (p *Provider) startSession(identity models.Identity) (*models.Credential, error) {
	cred, err := p.tokens.Issue(identity)
	if err != nil {
		return nil, err
	}
	p.armExpiry(cred.SessionID, identity, cred.ExpiresAt)
	p.publish(Event{Kind: EventSignedIn, SessionID: cred.SessionID, Identity: identity})
	return cred, nil
}

func (p *Provider) armExpiry(sessionID string, identity models.Identity, expiresAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if _, ok := p.expiry[sessionID]; ok {
		return
	}
	p.expiry[sessionID] = time.AfterFunc(time.Until(expiresAt), func() {
		p.mu.Lock()
		delete(p.expiry, sessionID)
		p.mu.Unlock()
		p.publish(Event{Kind: EventExpired, SessionID: sessionID, Identity: identity})
	})
}

func (p *Provider) publish(ev Event) {
	p.mu.Lock()
	callbacks := make([]func(Event), 0, len(p.subscribers))
	for _, cb := range p.subscribers {
		callbacks = append(callbacks, cb)
	}
	p.mu.Unlock()

	for _, cb := range callbacks {
		cb(ev)
	}
}

var _ Notifier = (*Provider)(nil)
