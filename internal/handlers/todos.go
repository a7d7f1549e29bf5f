package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	logpkg "github.com/benvon/embody/internal/logger"
	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/request"
	"github.com/benvon/embody/internal/score"
	"github.com/benvon/embody/internal/services/ai"
	"github.com/benvon/embody/internal/todos"
	"github.com/benvon/embody/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TodoHandler handles todo-related requests
type TodoHandler struct {
	todos     *todos.Store
	profiles  *profile.Service
	suggester ai.PointsSuggester
	logger    *zap.Logger
}

// NewTodoHandler creates a new todo handler. suggester may be nil.
func NewTodoHandler(store *todos.Store, profiles *profile.Service, suggester ai.PointsSuggester, logger *zap.Logger) *TodoHandler {
	if suggester == nil {
		suggester = ai.Disabled{}
	}
	return &TodoHandler{
		todos:     store,
		profiles:  profiles,
		suggester: suggester,
		logger:    logger,
	}
}

// RegisterRoutes registers todo routes on a router with the /todos prefix
func (h *TodoHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTodos).Methods("GET")
	r.HandleFunc("", h.AddTodo).Methods("POST")
	r.HandleFunc("/suggest-points", h.SuggestPoints).Methods("POST")
	r.HandleFunc("/{id}/toggle", h.ToggleTodo).Methods("POST")
	r.HandleFunc("/{id}", h.DeleteTodo).Methods("DELETE")
}

// AddTodoRequest is the add-item form. Points may be a number or a numeric string.
type AddTodoRequest struct {
	Label  string `json:"label" validate:"required,max=500"`
	Points any    `json:"points"`
}

// SuggestPointsRequest asks for a point value for a label
type SuggestPointsRequest struct {
	Label string `json:"label" validate:"required,max=500"`
}

// CollectionResponse is the reconciled collection with its derived score
type CollectionResponse struct {
	Todos   []models.TodoItem `json:"todos"`
	Summary score.Summary     `json:"summary"`
}

// MutationResponse adds the item a mutation touched
type MutationResponse struct {
	Item *models.TodoItem `json:"item,omitempty"`
	CollectionResponse
}

// ListTodos returns the live collection and score
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	uid := request.UserID(r)
	if uid == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	ctx := r.Context()
	items, err := h.todos.List(ctx, uid)
	if err != nil {
		h.logger.Error("todos_list_failed", zap.String("user_id", uid), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve todos")
		return
	}

	respondJSON(w, http.StatusOK, h.collection(ctx, uid, items))
}

// AddTodo creates an unchecked item
func (h *TodoHandler) AddTodo(w http.ResponseWriter, r *http.Request) {
	uid := request.UserID(r)
	if uid == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	var req AddTodoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Points == nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Points are required")
		return
	}
	points, err := todos.ParsePoints(req.Points)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Points must be a whole number")
		return
	}

	ctx := r.Context()
	item, items, err := h.todos.Add(ctx, uid, req.Label, points)
	if err != nil {
		if errors.Is(err, todos.ErrInvalidTodo) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Label is required and cannot be empty after sanitization")
			return
		}
		h.logger.Error("todo_add_failed",
			zap.String("user_id", uid),
			zap.String("label", logpkg.SanitizeLabel(req.Label)),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to add todo")
		return
	}

	respondJSON(w, http.StatusCreated, MutationResponse{Item: item, CollectionResponse: h.collection(ctx, uid, items)})
}

// ToggleTodo flips an item's checked flag
func (h *TodoHandler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	uid := request.UserID(r)
	if uid == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}
	id := mux.Vars(r)["id"]
	if err := validation.ValidateKey(id); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid todo ID")
		return
	}

	ctx := r.Context()
	item, items, err := h.todos.Toggle(ctx, uid, id)
	if err != nil {
		if errors.Is(err, todos.ErrTodoNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Todo not found")
			return
		}
		h.logger.Error("todo_toggle_failed", zap.String("user_id", uid), zap.String("todo_id", id), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to toggle todo")
		return
	}

	respondJSON(w, http.StatusOK, MutationResponse{Item: item, CollectionResponse: h.collection(ctx, uid, items)})
}

// DeleteTodo removes an item. Unknown ids are not an error.
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	uid := request.UserID(r)
	if uid == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}
	id := mux.Vars(r)["id"]
	if err := validation.ValidateKey(id); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid todo ID")
		return
	}

	ctx := r.Context()
	items, err := h.todos.Delete(ctx, uid, id)
	if err != nil {
		h.logger.Error("todo_delete_failed", zap.String("user_id", uid), zap.String("todo_id", id), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete todo")
		return
	}

	respondJSON(w, http.StatusOK, h.collection(ctx, uid, items))
}

// SuggestPoints proposes a point value for a label from the user's embodiment goal
func (h *TodoHandler) SuggestPoints(w http.ResponseWriter, r *http.Request) {
	uid := request.UserID(r)
	if uid == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	var req SuggestPointsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	label := validation.SanitizeText(req.Label)
	if label == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Label is required")
		return
	}

	ctx := ai.WithUserID(r.Context(), uid)
	var embodyGoal string
	if user, err := h.profiles.Get(ctx, uid); err == nil {
		embodyGoal = user.EmbodyGoal
	}

	points, err := h.suggester.SuggestPoints(ctx, label, embodyGoal)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]any{"label": label, "points": points})
	case errors.Is(err, ai.ErrAIDisabled):
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Point suggestions are not configured")
	case ai.IsQuotaError(err), ai.IsRateLimitError(err):
		h.logger.Warn("points_suggestion_throttled", zap.String("user_id", uid), zap.Error(err))
		var pe *ai.ProviderError
		if errors.As(err, &pe) && pe.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(pe.RetryAfter.Round(time.Second)/time.Second)))
		}
		respondJSONError(w, http.StatusTooManyRequests, "Too Many Requests", "Point suggestions are temporarily unavailable")
	default:
		h.logger.Error("points_suggestion_failed", zap.String("user_id", uid), zap.Error(err))
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to suggest points")
	}
}

// collection pairs items with the score summary against the user's points goal.
func (h *TodoHandler) collection(ctx context.Context, uid string, items models.Todos) CollectionResponse {
	goal := 0
	if user, err := h.profiles.Get(ctx, uid); err == nil {
		goal = user.PointsGoal
	} else if !errors.Is(err, profile.ErrProfileNotFound) {
		h.logger.Warn("points_goal_unavailable", zap.String("user_id", uid), zap.Error(err))
	}
	return CollectionResponse{
		Todos:   sortedOrEmpty(items),
		Summary: score.Summarize(score.Total(items), goal),
	}
}

func sortedOrEmpty(items models.Todos) []models.TodoItem {
	sorted := items.Sorted()
	if sorted == nil {
		return []models.TodoItem{}
	}
	return sorted
}
