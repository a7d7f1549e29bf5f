package handlers

import (
	"errors"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/request"
	"github.com/benvon/embody/internal/score"
	"github.com/benvon/embody/internal/todos"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Greetings is the pool the Today view picks from
var Greetings = []string{
	"Hello",
	"Greetings",
	"Hi there",
	"Welcome",
	"Good day",
	"Salutations",
	"Hey",
	"Howdy",
	"Hola",
	"Bonjour",
	"Ciao",
	"Namaste",
	"Aloha",
	"Shalom",
	"Yo",
	"What's up",
	"Sup",
	"Hiya",
	"Cheers",
	"Hail",
}

// ViewHandler composes the Today screen
type ViewHandler struct {
	todos    *todos.Store
	profiles *profile.Service
	location *time.Location
	now      func() time.Time
	pick     func(n int) int
	logger   *zap.Logger
}

// NewViewHandler creates a new view handler
func NewViewHandler(store *todos.Store, profiles *profile.Service, loc *time.Location, logger *zap.Logger) *ViewHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ViewHandler{
		todos:    store,
		profiles: profiles,
		location: loc,
		now:      time.Now,
		pick:     rand.IntN,
		logger:   logger,
	}
}

// RegisterRoutes registers view routes on a router with the /views prefix
func (h *ViewHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/today", h.Today).Methods("GET")
}

// TodayResponse is the Today screen
type TodayResponse struct {
	Greeting   string            `json:"greeting"`
	Name       string            `json:"name"`
	Date       string            `json:"date"`
	DayOfWeek  string            `json:"day_of_week"`
	Embodiment string            `json:"embodiment"`
	Headline   string            `json:"headline"`
	Summary    score.Summary     `json:"summary"`
	Todos      []models.TodoItem `json:"todos"`
}

// Today returns the greeting, the day framing and the live collection
func (h *ViewHandler) Today(w http.ResponseWriter, r *http.Request) {
	uid := request.UserID(r)
	if uid == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	ctx := r.Context()
	user, err := h.profiles.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Profile not found")
			return
		}
		h.logger.Error("today_profile_failed", zap.String("user_id", uid), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load profile")
		return
	}

	items, err := h.todos.List(ctx, uid)
	if err != nil {
		h.logger.Error("today_todos_failed", zap.String("user_id", uid), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve todos")
		return
	}

	now := h.now().In(h.location)
	day := now.Weekday().String()
	respondJSON(w, http.StatusOK, TodayResponse{
		Greeting:   h.greeting(),
		Name:       user.DisplayName(),
		Date:       now.Format(models.DateLayout),
		DayOfWeek:  day,
		Embodiment: user.EmbodyGoal,
		Headline:   Headline(day, user.EmbodyGoal),
		Summary:    score.Summarize(score.Total(items), user.PointsGoal),
		Todos:      sortedOrEmpty(items),
	})
}

// Headline frames the day around the embodiment goal
func Headline(day, embodiment string) string {
	if embodiment == "" {
		return "Your " + day
	}
	return "Your " + day + " as a " + embodiment
}

func (h *ViewHandler) greeting() string {
	return Greetings[h.pick(len(Greetings))]
}
