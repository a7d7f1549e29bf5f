package handlers

import (
	"errors"
	"net/http"

	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/request"
	"github.com/benvon/embody/internal/todos"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SettingsHandler reads and edits the profile fields a user controls
type SettingsHandler struct {
	profiles *profile.Service
	observer todos.Observer
	logger   *zap.Logger
}

// NewSettingsHandler creates a new settings handler. observer is told when
// the points goal moves so today's snapshot follows it; it may be nil.
func NewSettingsHandler(profiles *profile.Service, observer todos.Observer, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{profiles: profiles, observer: observer, logger: logger}
}

// RegisterRoutes registers settings routes on a router with the /settings prefix
func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetSettings).Methods("GET")
	r.HandleFunc("", h.UpdateSettings).Methods("PATCH")
}

// SettingsResponse is the editable part of the profile
type SettingsResponse struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	EmbodyGoal string `json:"embody_goal"`
	PointsGoal int    `json:"points_goal"`
}

// UpdateSettingsRequest carries only the fields being changed
type UpdateSettingsRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,max=100"`
	EmbodyGoal *string `json:"embody_goal,omitempty" validate:"omitempty,max=200"`
	PointsGoal *int    `json:"points_goal,omitempty" validate:"omitempty,min=0,max=100000"`
}

// GetSettings returns the user's settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	uid := request.UserID(r)
	if uid == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	user, err := h.profiles.Get(r.Context(), uid)
	if err != nil {
		h.respondProfileError(w, uid, err)
		return
	}

	respondJSON(w, http.StatusOK, SettingsResponse{
		Email:      user.Email,
		Name:       user.Name,
		EmbodyGoal: user.EmbodyGoal,
		PointsGoal: user.PointsGoal,
	})
}

// UpdateSettings applies a partial update
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	uid := request.UserID(r)
	if uid == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	var req UpdateSettingsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	before, err := h.profiles.Get(ctx, uid)
	if err != nil {
		h.respondProfileError(w, uid, err)
		return
	}

	user, err := h.profiles.UpdateSettings(ctx, uid, profile.Settings{
		Name:       req.Name,
		EmbodyGoal: req.EmbodyGoal,
		PointsGoal: req.PointsGoal,
	})
	if err != nil {
		h.logger.Error("settings_update_failed", zap.String("user_id", uid), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update settings")
		return
	}

	if h.observer != nil && user.PointsGoal != before.PointsGoal {
		h.observer.Changed(ctx, uid)
	}

	h.logger.Info("settings_updated", zap.String("user_id", uid))
	respondJSON(w, http.StatusOK, SettingsResponse{
		Email:      user.Email,
		Name:       user.Name,
		EmbodyGoal: user.EmbodyGoal,
		PointsGoal: user.PointsGoal,
	})
}

func (h *SettingsHandler) respondProfileError(w http.ResponseWriter, uid string, err error) {
	if errors.Is(err, profile.ErrProfileNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Profile not found")
		return
	}
	h.logger.Error("settings_load_failed", zap.String("user_id", uid), zap.Error(err))
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load settings")
}
