package handlers

import (
	"net/http"

	"github.com/benvon/embody/internal/request"
	"github.com/benvon/embody/internal/session"
	"github.com/gorilla/mux"
)

// FormField describes one input of a client form
type FormField struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	Required  bool   `json:"required"`
	MinLength int    `json:"min_length,omitempty"`
}

// Form describes a form the client renders while signed out
type Form struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Fields []FormField `json:"fields"`
}

// SessionView is the gate state plus the forms to show when signed out
type SessionView struct {
	session.Snapshot
	Forms map[string]Form `json:"forms,omitempty"`
}

var signedOutForms = map[string]Form{
	"sign_up": {
		Action: "/api/v1/auth/signup",
		Method: http.MethodPost,
		Fields: []FormField{
			{Name: "email", Label: "Email", Type: "email", Required: true},
			{Name: "name", Label: "Name", Type: "text"},
			{Name: "embody_goal", Label: "Who do you want to embody?", Type: "text"},
			{Name: "password", Label: "Password", Type: "password", Required: true, MinLength: session.MinPasswordLength},
		},
	},
	"sign_in": {
		Action: "/api/v1/auth/signin",
		Method: http.MethodPost,
		Fields: []FormField{
			{Name: "email", Label: "Email", Type: "email", Required: true},
			{Name: "password", Label: "Password", Type: "password", Required: true},
		},
	},
}

// SessionHandler reports the session gate state
type SessionHandler struct {
	notifier session.Notifier
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(notifier session.Notifier) *SessionHandler {
	return &SessionHandler{notifier: notifier}
}

// RegisterRoutes registers GET /session. The router must run OptionalAuth.
func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/session", h.GetSession).Methods("GET")
}

// GetSession returns the gate state for the caller's token
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	gate := session.NewGate(h.notifier)
	snap := gate.Open(request.SessionFromContext(r))
	gate.Close()

	view := SessionView{Snapshot: snap}
	if snap.State == session.StateUnauthenticated {
		view.Forms = signedOutForms
	}
	respondJSON(w, http.StatusOK, view)
}
