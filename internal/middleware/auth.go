package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	logpkg "github.com/benvon/embody/internal/logger"
	"github.com/benvon/embody/internal/request"
	"github.com/benvon/embody/internal/session"
	"go.uber.org/zap"
)

// Authenticator resolves a bearer token to a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*session.Session, error)
}

// BearerToken returns the token from an "Authorization: Bearer" header.
// EventSource clients cannot set headers, so an access_token query parameter
// is accepted for the events stream.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if tok := r.URL.Query().Get("access_token"); tok != "" && strings.HasSuffix(r.URL.Path, "/events") {
			return tok, nil
		}
		return "", errors.New("missing Authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("invalid Authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// Auth rejects requests without a valid session token and attaches the
// session to the request context.
func Auth(auth Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, err.Error(), logger)
				return
			}
			sess, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				logger.Debug("token_rejected",
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				message := "Invalid or expired token"
				if errors.Is(err, session.ErrSessionRevoked) {
					message = "Session has been signed out"
				}
				writeError(w, r, http.StatusUnauthorized, message, logger)
				return
			}
			next.ServeHTTP(w, r.WithContext(request.WithSession(r.Context(), sess)))
		})
	}
}

// OptionalAuth attaches the session when a valid token is present and lets
// the request through either way.
func OptionalAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err == nil {
				if sess, authErr := auth.Authenticate(r.Context(), token); authErr == nil {
					r = r.WithContext(request.WithSession(r.Context(), sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
