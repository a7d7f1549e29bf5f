package middleware

import (
	"context"
	"time"

	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/request"
	"github.com/benvon/embody/internal/session"
)

// SetSessionInContext is a helper for tests in other packages: it attaches a
// session for uid as if Auth had run.
func SetSessionInContext(ctx context.Context, uid, email string) context.Context {
	return request.WithSession(ctx, &session.Session{
		ID:        "test-session-" + uid,
		Identity:  models.Identity{UID: uid, Email: email},
		ExpiresAt: time.Now().Add(time.Hour),
	})
}
