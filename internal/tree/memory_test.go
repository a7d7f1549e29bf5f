package tree

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestMemoryStore_WriteRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	type todo struct {
		Label   string `json:"label"`
		Points  int    `json:"points"`
		Checked bool   `json:"checked"`
	}
	if err := s.Write(ctx, "users/u1/todos/t1", todo{Label: "Walk", Points: 5}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := s.Read(ctx, "users/u1/todos/t1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := map[string]any{"label": "Walk", "points": float64(5), "checked": false}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read = %#v, want %#v", got, want)
	}

	missing, err := s.Read(ctx, "users/u2")
	if err != nil {
		t.Fatalf("Read missing failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Read missing = %#v, want nil", missing)
	}
}

func TestMemoryStore_DeletePrunesEmptyParents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Write(ctx, "users/u1/todos/t1/label", "x"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Write(ctx, "users/u1/todos/t1", nil); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, err := s.Read(ctx, "users/u1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected pruned user node, got %#v", got)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Write(ctx, "users/u1", map[string]any{"name": "Ada", "pointsGoal": 10}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	err := s.Update(ctx, "users/u1", map[string]any{
		"pointsGoal":       20,
		"todos/t1/checked": true,
		"embodyGoal":       nil,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := s.Read(ctx, "users/u1")
	want := map[string]any{
		"name":       "Ada",
		"pointsGoal": float64(20),
		"todos":      map[string]any{"t1": map[string]any{"checked": true}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read after Update = %#v, want %#v", got, want)
	}

	if err := s.Update(ctx, "users/u1", map[string]any{"a.b": 1}); err == nil {
		t.Error("expected error for invalid child key")
	}
}

func TestMemoryStore_ReadReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.Write(ctx, "users/u1/name", "Ada")
	got, _ := s.Read(ctx, "users/u1")
	got.(map[string]any)["name"] = "changed"

	again, _ := s.Read(ctx, "users/u1/name")
	if again != "Ada" {
		t.Errorf("store mutated through Read result: %v", again)
	}
}

func TestMemoryStore_PushAndKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := s.Push(ctx, "users/u1/todos")
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	second, err := s.Push(ctx, "users/u1/todos")
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if first == second {
		t.Fatal("Push returned duplicate keys")
	}
	if strings.Compare(first, second) >= 0 {
		t.Errorf("Push keys not time ordered: %s >= %s", first, second)
	}

	_ = s.Write(ctx, "users/u1/todos/"+second, map[string]any{"label": "b"})
	_ = s.Write(ctx, "users/u1/todos/"+first, map[string]any{"label": "a"})

	keys, err := s.Keys(ctx, "users/u1/todos")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{first, second}) {
		t.Errorf("Keys = %v, want [%s %s]", keys, first, second)
	}

	if _, err := s.Keys(ctx, "bad//path"); err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestNormalize_PrunesEmpty(t *testing.T) {
	t.Parallel()

	got, err := Normalize(map[string]any{
		"keep":  1,
		"empty": map[string]any{},
		"nil":   nil,
		"list":  []any{},
	})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	want := map[string]any{"keep": float64(1)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %#v, want %#v", got, want)
	}
}

func TestGet_ArrayIndex(t *testing.T) {
	t.Parallel()

	node := map[string]any{"todos": []any{map[string]any{"label": "a"}, nil}}
	if got := Get(node, []string{"todos", "0", "label"}); got != "a" {
		t.Errorf("Get array index = %v, want a", got)
	}
	if got := Get(node, []string{"todos", "1"}); got != nil {
		t.Errorf("Get nil element = %v, want nil", got)
	}
	if keys := ChildKeys(node["todos"]); !reflect.DeepEqual(keys, []string{"0"}) {
		t.Errorf("ChildKeys array = %v, want [0]", keys)
	}
}
