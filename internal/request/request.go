package request

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/benvon/embody/internal/session"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
	callerContextKey  contextKey = "caller"
)

// SessionContextKey returns the context key used for the session. Exposed for tests that inject non-session values.
func SessionContextKey() contextKey { return sessionContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// Caller records who made a request. Outer middleware installs it before the
// session is known; WithSession fills it in further down the chain.
type Caller struct {
	mu  sync.Mutex
	uid string
}

// UID returns the authenticated uid, or "" when the request had none.
func (c *Caller) UID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid
}

// WithCaller returns r with a Caller slot in its context, reusing an
// existing slot.
func WithCaller(r *http.Request) (*http.Request, *Caller) {
	if c, ok := r.Context().Value(callerContextKey).(*Caller); ok {
		return r, c
	}
	c := &Caller{}
	return r.WithContext(context.WithValue(r.Context(), callerContextKey, c)), c
}

// WithSession returns a context with the authenticated session attached.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	if c, ok := ctx.Value(callerContextKey).(*Caller); ok && sess != nil {
		c.mu.Lock()
		c.uid = sess.Identity.UID
		c.mu.Unlock()
	}
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SessionFromContext returns the session from the request context, or nil if missing or wrong type.
func SessionFromContext(r *http.Request) *session.Session {
	s, _ := r.Context().Value(sessionContextKey).(*session.Session)
	return s
}

// UserID returns the uid of the authenticated caller, or "".
func UserID(r *http.Request) string {
	if s := SessionFromContext(r); s != nil {
		return s.Identity.UID
	}
	return ""
}
