package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	logpkg "github.com/benvon/embody/internal/logger"
	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/request"
	"github.com/benvon/embody/internal/session"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DefaultHeartbeat is how often the events stream writes a keep-alive comment.
const DefaultHeartbeat = 25 * time.Second

// AuthHandler handles account and session requests
type AuthHandler struct {
	auth      *session.Provider
	profiles  *profile.Service
	logger    *zap.Logger
	heartbeat time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *session.Provider, profiles *profile.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		profiles:  profiles,
		logger:    logger,
		heartbeat: DefaultHeartbeat,
	}
}

// RegisterPublicRoutes registers sign-up and sign-in under /api/v1/auth
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/signup", h.SignUp).Methods("POST")
	r.HandleFunc("/signin", h.SignIn).Methods("POST")
}

// RegisterRoutes registers the authenticated auth routes under /api/v1/auth
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/signout", h.SignOut).Methods("POST")
	r.HandleFunc("/me", h.GetMe).Methods("GET")
	r.HandleFunc("/events", h.Events).Methods("GET")
}

// SignUpRequest is the sign-up form
type SignUpRequest struct {
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,min=6,max=128"`
	Name       string `json:"name" validate:"max=100"`
	EmbodyGoal string `json:"embody_goal" validate:"max=200"`
}

// SignInRequest is the sign-in form
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// AuthResponse is returned by sign-up and sign-in
type AuthResponse struct {
	Credential *models.Credential `json:"credential"`
	Profile    *models.User       `json:"profile,omitempty"`
}

// MeResponse describes the caller
type MeResponse struct {
	Identity  models.Identity `json:"identity"`
	SessionID string          `json:"session_id"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *models.User    `json:"profile"`
}

// SignUp creates an account and its profile record
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	cred, err := h.auth.CreateAccount(ctx, req.Email, req.Password)
	if err != nil {
		h.respondAuthError(w, "signup_failed", req.Email, err)
		return
	}

	user, err := h.profiles.Create(ctx, cred.Identity, req.Name, req.EmbodyGoal)
	if err != nil {
		h.logger.Error("profile_create_failed",
			zap.String("user_id", cred.Identity.UID),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create profile")
		return
	}

	respondJSON(w, http.StatusCreated, AuthResponse{Credential: cred, Profile: user})
}

// SignIn exchanges credentials for a session token
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cred, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAuthError(w, "signin_failed", req.Email, err)
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{Credential: cred})
}

// SignOut revokes the caller's session
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess := request.SessionFromContext(r)
	if sess == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	if err := h.auth.SignOut(r.Context(), sess); err != nil {
		h.logger.Error("signout_failed",
			zap.String("user_id", sess.Identity.UID),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to sign out")
		return
	}

	respondJSON(w, http.StatusOK, session.Snapshot{State: session.StateUnauthenticated, Reason: session.EventSignedOut})
}

// GetMe returns the caller's identity and profile. A missing profile is
// recreated from the identity.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	sess := request.SessionFromContext(r)
	if sess == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	ctx := r.Context()
	user, err := h.profiles.Get(ctx, sess.Identity.UID)
	if errors.Is(err, profile.ErrProfileNotFound) {
		user, err = h.profiles.Create(ctx, sess.Identity, "", "")
	}
	if err != nil {
		h.logger.Error("profile_load_failed",
			zap.String("user_id", sess.Identity.UID),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load profile")
		return
	}

	respondJSON(w, http.StatusOK, MeResponse{
		Identity:  sess.Identity,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
		Profile:   user,
	})
}

// Events streams session gate transitions as server-sent events until the
// client disconnects.
func (h *AuthHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Streaming unsupported")
		return
	}

	gate := session.NewGate(h.auth)
	current := gate.Open(request.SessionFromContext(r))
	defer gate.Close()

	// The server write timeout would otherwise cut the stream.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("sse_write_deadline_not_cleared", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "state", current); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, open := <-gate.Updates():
			if !open {
				return
			}
			if err := writeEvent(w, "state", snap); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return err
}

func (h *AuthHandler) respondAuthError(w http.ResponseWriter, event, email string, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid email or password")
	case errors.Is(err, session.ErrAccountExists):
		respondJSONError(w, http.StatusConflict, "Conflict", "An account with this email already exists")
	case errors.Is(err, session.ErrInvalidEmail), errors.Is(err, session.ErrWeakPassword):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		h.logger.Error(event,
			zap.String("email", logpkg.MaskEmail(email)),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Authentication failed")
		return
	}
	h.logger.Info(event,
		zap.String("email", logpkg.MaskEmail(email)),
		zap.String("reason", err.Error()),
	)
}
