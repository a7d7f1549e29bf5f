package handlers

import (
	"errors"
	"net/http"

	"github.com/benvon/embody/internal/history"
	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/request"
	"github.com/benvon/embody/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HistoryHandler serves the calendar and per-day snapshots
type HistoryHandler struct {
	recorder *history.Recorder
	logger   *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(recorder *history.Recorder, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{recorder: recorder, logger: logger}
}

// RegisterRoutes registers history routes on a router with the /history prefix
func (h *HistoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Calendar).Methods("GET")
	r.HandleFunc("/{date}", h.Day).Methods("GET")
}

// CalendarResponse lists every recorded day, oldest first
type CalendarResponse struct {
	Today string              `json:"today"`
	Days  []models.DaySummary `json:"days"`
}

// Calendar returns the per-date score and goal
func (h *HistoryHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	uid := request.UserID(r)
	if uid == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	days, err := h.recorder.Calendar(r.Context(), uid)
	if err != nil {
		h.logger.Error("history_calendar_failed", zap.String("user_id", uid), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve history")
		return
	}
	if days == nil {
		days = []models.DaySummary{}
	}

	respondJSON(w, http.StatusOK, CalendarResponse{Today: h.recorder.Today(), Days: days})
}

// Day returns the frozen snapshot for one date
func (h *HistoryHandler) Day(w http.ResponseWriter, r *http.Request) {
	uid := request.UserID(r)
	if uid == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}
	date := mux.Vars(r)["date"]
	if err := validation.ValidateDate(date); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Date must be formatted YYYY-MM-DD")
		return
	}

	day, err := h.recorder.Day(r.Context(), uid, date)
	if err != nil {
		if errors.Is(err, history.ErrDayNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "No history recorded for "+date)
			return
		}
		h.logger.Error("history_day_failed", zap.String("user_id", uid), zap.String("date", date), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve history")
		return
	}

	respondJSON(w, http.StatusOK, day)
}
