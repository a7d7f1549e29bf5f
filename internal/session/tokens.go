package session

import (
	"fmt"
	"time"

	"github.com/benvon/embody/internal/models"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// MinSecretLength is the shortest accepted HMAC signing secret
const MinSecretLength = 32

// Session is a verified session token
type Session struct {
	ID        string
	Identity  models.Identity
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 session tokens
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. The secret must be at least MinSecretLength bytes.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token for a new session
func (i *TokenIssuer) Issue(identity models.Identity) (*models.Credential, error) {
	now := i.now()
	sessionID := uuid.NewString()
	expiresAt := now.Add(i.ttl).Truncate(time.Second)

	token, err := jwt.NewBuilder().
		Subject(identity.UID).
		Issuer(i.issuer).
		JwtID(sessionID).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim("email", identity.Email).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, i.secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &models.Credential{
		Token:     string(signed),
		SessionID: sessionID,
		ExpiresAt: expiresAt,
		Identity:  identity,
	}, nil
}

// Verify checks signature, issuer and expiry and extracts the session
func (i *TokenIssuer) Verify(tokenString string) (*Session, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, i.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(i.issuer),
		jwt.WithClock(jwt.ClockFunc(i.now)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if token.Subject() == "" || token.JwtID() == "" {
		return nil, fmt.Errorf("%w: missing subject or session id", ErrInvalidToken)
	}

	var email string
	if v, ok := token.Get("email"); ok {
		email, _ = v.(string)
	}

	return &Session{
		ID:        token.JwtID(),
		Identity:  models.Identity{UID: token.Subject(), Email: email},
		ExpiresAt: token.Expiration(),
	}, nil
}
