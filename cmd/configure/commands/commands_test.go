package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benvon/embody/internal/history"
	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/tree"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type fakeCorsStore struct {
	cfg *models.CorsConfig
}

func (f *fakeCorsStore) Get(context.Context) (*models.CorsConfig, error) { return f.cfg, nil }

func (f *fakeCorsStore) Set(_ context.Context, c *models.CorsConfig) error {
	f.cfg = c
	return nil
}

type fakeRatelimitStore struct {
	cfg *models.RatelimitConfig
}

func (f *fakeRatelimitStore) Get(context.Context) (*models.RatelimitConfig, error) { return f.cfg, nil }

func (f *fakeRatelimitStore) Set(_ context.Context, c *models.RatelimitConfig) error {
	f.cfg = c
	return nil
}

type harness struct {
	store     *tree.MemoryStore
	cors      *fakeCorsStore
	ratelimit *fakeRatelimitStore
	profiles  *profile.Service
	recorder  *history.Recorder
	opened    int
	closed    int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	now := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	h := &harness{
		store:     tree.NewMemoryStore(),
		cors:      &fakeCorsStore{},
		ratelimit: &fakeRatelimitStore{},
	}
	h.profiles = profile.NewService(h.store, zap.NewNop())
	h.recorder = history.NewRecorder(h.store, h.profiles, time.UTC, zap.NewNop(),
		history.WithClock(func() time.Time { return now }))
	return h
}

func (h *harness) open(context.Context) (*Runtime, error) {
	h.opened++
	return &Runtime{
		Cors:      h.cors,
		Ratelimit: h.ratelimit,
		Profiles:  h.profiles,
		Recorder:  h.recorder,
		closers: []func() error{func() error {
			h.closed++
			return nil
		}},
	}, nil
}

func (h *harness) seedUser(t *testing.T, uid string) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.profiles.Create(ctx, models.Identity{UID: uid, Email: uid + "@example.com"}, "Ada", "pirate"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := h.store.Write(ctx, profile.TodoPath(uid, "a"), map[string]any{"label": "Walk", "points": 3, "checked": true})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}

func run(t *testing.T, h *harness, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(h.open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCorsCommands(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out, err := run(t, h, "cors", "list")
	if err != nil {
		t.Fatalf("cors list error = %v", err)
	}
	if !strings.Contains(out, "No CORS configuration") {
		t.Errorf("cors list output = %q", out)
	}

	if _, err := run(t, h, "cors", "set", "--origins", " https://a.example , https://b.example ", "--max-age", "600", "--allow-credentials=false"); err != nil {
		t.Fatalf("cors set error = %v", err)
	}
	if h.cors.cfg == nil || h.cors.cfg.AllowedOrigins != "https://a.example,https://b.example" || h.cors.cfg.MaxAge != 600 {
		t.Fatalf("stored cors config = %+v", h.cors.cfg)
	}

	out, err = run(t, h, "cors", "list")
	if err != nil {
		t.Fatalf("cors list error = %v", err)
	}
	if !strings.Contains(out, "https://a.example, https://b.example") {
		t.Errorf("cors list output = %q", out)
	}
	if h.opened != h.closed {
		t.Errorf("opened %d runtimes but closed %d", h.opened, h.closed)
	}
}

func TestCommandValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "cors set without origins", args: []string{"cors", "set"}},
		{name: "cors set negative max age", args: []string{"cors", "set", "--origins", "https://a.example", "--max-age", "-1"}},
		{name: "ratelimit set without rate", args: []string{"ratelimit", "set"}},
		{name: "ratelimit set malformed rate", args: []string{"ratelimit", "set", "--rate", "fast"}},
		{name: "user show without uid", args: []string{"user", "show"}},
		{name: "history list without uid", args: []string{"history", "list"}},
		{name: "rollover without uid", args: []string{"rollover"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			if _, err := run(t, h, tt.args...); err == nil {
				t.Fatal("expected an error")
			}
			if h.opened != 0 {
				t.Errorf("runtime opened %d times for invalid input", h.opened)
			}
		})
	}
}

func TestRatelimitSet(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	if _, err := run(t, h, "ratelimit", "set", "--rate", "100-M"); err != nil {
		t.Fatalf("ratelimit set error = %v", err)
	}
	if h.ratelimit.cfg == nil || h.ratelimit.cfg.Rate != "100-M" {
		t.Fatalf("stored rate = %+v", h.ratelimit.cfg)
	}
	out, err := run(t, h, "ratelimit", "list")
	if err != nil {
		t.Fatalf("ratelimit list error = %v", err)
	}
	if !strings.Contains(out, "Rate: 100-M") {
		t.Errorf("ratelimit list output = %q", out)
	}
}

func TestUserCommands(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out, err := run(t, h, "user", "list")
	if err != nil {
		t.Fatalf("user list error = %v", err)
	}
	if !strings.Contains(out, "No users stored") {
		t.Errorf("user list output = %q", out)
	}

	h.seedUser(t, "user-1")
	out, err = run(t, h, "user", "list")
	if err != nil {
		t.Fatalf("user list error = %v", err)
	}
	if strings.TrimSpace(out) != "user-1" {
		t.Errorf("user list output = %q", out)
	}

	out, err = run(t, h, "user", "show", "--uid", "user-1", "--output", "json")
	if err != nil {
		t.Fatalf("user show error = %v", err)
	}
	var view UserView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode json output: %v", err)
	}
	if view.Name != "Ada" || view.EmbodyGoal != "pirate" || view.Score != 3 || len(view.Todos) != 1 {
		t.Errorf("user view = %+v", view)
	}

	out, err = run(t, h, "user", "show", "--uid", "user-1")
	if err != nil {
		t.Fatalf("user show error = %v", err)
	}
	var yview UserView
	if err := yaml.Unmarshal([]byte(out), &yview); err != nil {
		t.Fatalf("decode yaml output: %v", err)
	}
	if yview.UID != "user-1" || yview.Todos[0].Label != "Walk" {
		t.Errorf("yaml user view = %+v", yview)
	}

	if _, err := run(t, h, "user", "show", "--uid", "nobody"); err == nil {
		t.Error("expected an error for an unknown user")
	}
	if _, err := run(t, h, "user", "show", "--uid", "user-1", "--output", "xml"); err == nil {
		t.Error("expected an error for an unknown output format")
	}
}

func TestRolloverAndHistory(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seedUser(t, "user-1")
	ctx := context.Background()

	out, err := run(t, h, "rollover", "--uid", "user-1")
	if err != nil {
		t.Fatalf("rollover error = %v", err)
	}
	if !strings.Contains(out, "already on 2026-10-16") {
		t.Errorf("first rollover output = %q", out)
	}

	if err := h.store.Write(ctx, profile.LastResetDatePath("user-1"), "2026-10-15"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out, err = run(t, h, "rollover", "--uid", "user-1")
	if err != nil {
		t.Fatalf("rollover error = %v", err)
	}
	if !strings.Contains(out, "Rolled user-1 over to 2026-10-16") {
		t.Errorf("rollover output = %q", out)
	}

	user, err := h.profiles.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(user.Todos) != 0 {
		t.Errorf("todos after rollover = %v, want none", user.Todos)
	}

	out, err = run(t, h, "history", "list", "--uid", "user-1")
	if err != nil {
		t.Fatalf("history list error = %v", err)
	}
	if !strings.Contains(out, "DATE") || !strings.Contains(out, "2026-10-15") {
		t.Errorf("history table = %q", out)
	}

	out, err = run(t, h, "history", "list", "--uid", "user-1", "-o", "json")
	if err != nil {
		t.Fatalf("history list error = %v", err)
	}
	var days []models.DaySummary
	if err := json.Unmarshal([]byte(out), &days); err != nil {
		t.Fatalf("decode json output: %v", err)
	}
	var found bool
	for _, d := range days {
		if d.Date == "2026-10-15" {
			found = true
			if d.Score != 3 || d.ItemCount != 1 {
				t.Errorf("2026-10-15 summary = %+v", d)
			}
		}
	}
	if !found {
		t.Errorf("history = %+v, missing 2026-10-15", days)
	}
}

func TestWithRuntimeOpenError(t *testing.T) {
	t.Parallel()
	want := errors.New("no database")
	err := withRuntime(context.Background(), func(context.Context) (*Runtime, error) {
		return nil, want
	}, func(*Runtime) error {
		t.Fatal("fn called after open failed")
		return nil
	})
	if !errors.Is(err, want) {
		t.Errorf("withRuntime() error = %v, want %v", err, want)
	}
}
