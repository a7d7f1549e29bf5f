package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benvon/embody/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewTokenIssuer_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenIssuer("short", "embody", time.Hour); err == nil {
		t.Error("expected error for short secret")
	}
	if _, err := NewTokenIssuer(testSecret, "embody", 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}

func TestTokenIssuer_IssueVerify(t *testing.T) {
	t.Parallel()

	issuer, err := NewTokenIssuer(testSecret, "embody", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	identity := models.Identity{UID: "u1", Email: "ada@example.com"}

	cred, err := issuer.Issue(identity)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if cred.SessionID == "" || cred.Token == "" {
		t.Fatalf("incomplete credential: %+v", cred)
	}

	sess, err := issuer.Verify(cred.Token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if sess.ID != cred.SessionID {
		t.Errorf("session id = %s, want %s", sess.ID, cred.SessionID)
	}
	if sess.Identity != identity {
		t.Errorf("identity = %+v, want %+v", sess.Identity, identity)
	}
	if !sess.ExpiresAt.Equal(cred.ExpiresAt) {
		t.Errorf("expiry = %v, want %v", sess.ExpiresAt, cred.ExpiresAt)
	}
}

func TestTokenIssuer_VerifyRejects(t *testing.T) {
	t.Parallel()

	issuer, _ := NewTokenIssuer(testSecret, "embody", time.Hour)
	other, _ := NewTokenIssuer(strings.Repeat("x", 32), "embody", time.Hour)
	wrongIssuer, _ := NewTokenIssuer(testSecret, "someone-else", time.Hour)
	expired, _ := NewTokenIssuer(testSecret, "embody", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	identity := models.Identity{UID: "u1", Email: "a@b.c"}
	forged, _ := other.Issue(identity)
	foreign, _ := wrongIssuer.Issue(identity)
	stale, _ := expired.Issue(identity)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong key", forged.Token},
		{"wrong issuer", foreign.Token},
		{"expired", stale.Token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := issuer.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
