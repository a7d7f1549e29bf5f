package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benvon/embody/internal/history"
	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/request"
	"github.com/benvon/embody/internal/session"
	"github.com/benvon/embody/internal/todos"
	"github.com/benvon/embody/internal/tree"
	"go.uber.org/zap"
)

const testUID = "user-1"

// fixedNow is a Thursday
var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	tree     *tree.MemoryStore
	profiles *profile.Service
	recorder *history.Recorder
	todos    *todos.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	store := tree.NewMemoryStore()
	profiles := profile.NewService(store, logger)
	recorder := history.NewRecorder(store, profiles, time.UTC, logger, history.WithClock(func() time.Time { return fixedNow }))
	observer := history.NewObserver(history.NewInlineDispatcher(recorder), logger)

	return &testEnv{
		tree:     store,
		profiles: profiles,
		recorder: recorder,
		todos:    todos.NewStore(store, observer, logger),
	}
}

// seedUser creates the default profile with a points goal of 10
func (e *testEnv) seedUser(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	identity := models.Identity{UID: testUID, Email: "ada@example.com"}
	if _, err := e.profiles.Create(ctx, identity, "Ada", "pirate"); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
	goal := 10
	if _, err := e.profiles.UpdateSettings(ctx, testUID, profile.Settings{PointsGoal: &goal}); err != nil {
		t.Fatalf("failed to seed points goal: %v", err)
	}
}

// newAuthedRequest builds a JSON request carrying a session for testUID
func newAuthedRequest(method, path string, body any) *http.Request {
	req := newTestRequest(method, path, body)
	return req.WithContext(request.WithSession(req.Context(), &session.Session{
		ID:        "session-1",
		Identity:  models.Identity{UID: testUID, Email: "ada@example.com"},
		ExpiresAt: fixedNow.Add(24 * time.Hour),
	}))
}

// newTestRequest builds a request with an optional JSON body
func newTestRequest(method, path string, body any) *http.Request {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// decodeData unwraps the success envelope into out
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got status %d", rec.Code)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

// decodeError unwraps the error envelope
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected error envelope, got success with status %d", rec.Code)
	}
	return body
}
