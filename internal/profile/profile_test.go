package profile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/tree"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestService(t *testing.T) (*Service, *tree.MemoryStore) {
	t.Helper()
	store := tree.NewMemoryStore()
	return NewService(store, zap.NewNop()), store
}

func TestService_CreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Create(ctx, models.Identity{UID: "u1", Email: "ada@example.com"}, " Ada ", "Athlete")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	user, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if user.Name != "Ada" || user.EmbodyGoal != "Athlete" || user.Email != "ada@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.PointsGoal != 0 {
		t.Errorf("PointsGoal = %d, want 0", user.PointsGoal)
	}
	if len(user.Todos) != 0 {
		t.Errorf("expected no todos, got %d", len(user.Todos))
	}
}

func TestService_GetMissing(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Get error = %v, want ErrProfileNotFound", err)
	}
}

func TestService_UpdateSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)

	if _, err := svc.Create(ctx, models.Identity{UID: "u1", Email: "a@b.c"}, "Ada", "Athlete"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_ = store.Write(ctx, TodoPath("u1", "t1"), models.TodoItem{Label: "Run", Points: 3})

	goal := 40
	name := "Grace"
	user, err := svc.UpdateSettings(ctx, "u1", Settings{Name: &name, PointsGoal: &goal})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if user.Name != "Grace" || user.PointsGoal != 40 {
		t.Errorf("settings not applied: %+v", user)
	}
	if user.EmbodyGoal != "Athlete" {
		t.Errorf("EmbodyGoal changed to %q", user.EmbodyGoal)
	}
	if _, ok := user.Todos["t1"]; !ok {
		t.Error("settings update dropped todos")
	}
}

func TestService_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	for _, uid := range []string{"u2", "u1"} {
		if _, err := svc.Create(ctx, models.Identity{UID: uid, Email: uid + "@x.y"}, "", ""); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	uids, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(uids) != 2 || uids[0] != "u1" || uids[1] != "u2" {
		t.Errorf("List = %v, want [u1 u2]", uids)
	}
}

func TestService_GetMalformedTodos(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	store := tree.NewMemoryStore()
	svc := NewService(store, zap.New(core))

	if _, err := svc.Create(ctx, models.Identity{UID: "u1", Email: "ada@example.com"}, "Ada", "Athlete"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Write(ctx, TodosPath("u1"), "garbage"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	user, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(user.Todos) != 0 || user.Name != "Ada" {
		t.Errorf("unexpected user: %+v", user)
	}
	entries := logs.FilterMessage("todos_collection_malformed").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d malformed warnings, want 1", len(entries))
	}
	if err, _ := entries[0].ContextMap()["error"].(string); !strings.Contains(err, models.ErrMalformedTodos.Error()) {
		t.Errorf("warning error = %q, want it to carry %q", err, models.ErrMalformedTodos)
	}
}
