package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	logpkg "github.com/benvon/embody/internal/logger"
)

type contextKey struct{}

const (
	// MaxPreviewLength caps prompt and response previews in debug logs
	MaxPreviewLength = 200
	// RedactedValue replaces secrets in logs
	RedactedValue = "[REDACTED]"
)

// WithUserID attaches the calling uid for provider debug logs.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, contextKey{}, uid)
}

func userIDFrom(ctx context.Context) string {
	uid, _ := ctx.Value(contextKey{}).(string)
	return uid
}

// SanitizeAPIKey keeps the first and last four characters of a key.
func SanitizeAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 8 {
		return RedactedValue
	}
	return apiKey[:4] + RedactedValue + apiKey[len(apiKey)-4:]
}

// preview shortens prompt or response text for debug logs.
func preview(s string) string {
	return logpkg.SanitizeString(s, MaxPreviewLength)
}

// HashUserID shortens a uid to a stable hash so provider logs do not carry it.
func HashUserID(uid string) string {
	if uid == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(uid))
	return hex.EncodeToString(sum[:])[:16]
}
