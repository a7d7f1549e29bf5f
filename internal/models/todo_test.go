package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestTodos_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantIDs []string
		wantErr bool
	}{
		{"keyed", `{"a":{"label":"Run","points":10,"checked":true},"b":{"label":"Read","points":5}}`, []string{"a", "b"}, false},
		{"legacy array with ids", `[{"id":"x","label":"Run","points":1},{"id":"y","label":"Read","points":2}]`, []string{"x", "y"}, false},
		{"legacy array without ids", `[{"label":"Run","points":1},null,{"label":"Read","points":2}]`, []string{"0", "2"}, false},
		{"null", `null`, nil, false},
		{"scalar decodes empty", `"oops"`, nil, false},
		{"non object entries skipped", `{"a":"oops","b":{"label":"Read","points":1}}`, []string{"b"}, false},
		{"legacy array with scalars", `[1,{"label":"Read","points":2}]`, []string{"1"}, false},
		{"invalid json", `{"a":`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var todos Todos
			err := json.Unmarshal([]byte(tt.input), &todos)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			sorted := todos.Sorted()
			if len(sorted) != len(tt.wantIDs) {
				t.Fatalf("got %d items, want %d", len(sorted), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if sorted[i].ID != id {
					t.Errorf("item %d id = %q, want %q", i, sorted[i].ID, id)
				}
				if todos[id].ID != id {
					t.Errorf("keyed item %q carries id %q", id, todos[id].ID)
				}
			}
		})
	}
}

func TestUser_DisplayName(t *testing.T) {
	t.Parallel()

	u := User{Email: "ada@example.com"}
	if got := u.DisplayName(); got != "ada@example.com" {
		t.Errorf("DisplayName() = %q, want email fallback", got)
	}
	u.Name = "Ada"
	if got := u.DisplayName(); got != "Ada" {
		t.Errorf("DisplayName() = %q, want Ada", got)
	}
}

func TestTodoItem_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantPoints int
		wantLabel  string
		wantErr    bool
	}{
		{"integer points", `{"label":"Run","points":10,"checked":true}`, 10, "Run", false},
		{"string points", `{"label":"Run","points":"10"}`, 0, "Run", false},
		{"fractional points", `{"label":"Run","points":2.5}`, 0, "Run", false},
		{"huge points", `{"label":"Run","points":1e300}`, 0, "Run", false},
		{"numeric label", `{"label":7,"points":1}`, 1, "", false},
		{"not an object", `"Run"`, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var item TodoItem
			err := json.Unmarshal([]byte(tt.input), &item)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if item.Points != tt.wantPoints || item.Label != tt.wantLabel {
				t.Errorf("got %+v, want points %d label %q", item, tt.wantPoints, tt.wantLabel)
			}
		})
	}
}

func TestTodosFromNode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		node    any
		want    int
		wantErr bool
	}{
		{"nil", nil, 0, false},
		{"keyed", map[string]any{"a": map[string]any{"points": int64(3)}}, 1, false},
		{"array", []any{nil, map[string]any{"points": float64(3)}}, 1, false},
		{"string", "garbage", 0, true},
		{"bool", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := TodosFromNode(tt.node)
			if tt.wantErr != errors.Is(err, ErrMalformedTodos) {
				t.Fatalf("TodosFromNode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got == nil {
				t.Fatal("TodosFromNode() returned a nil collection")
			}
			if len(got) != tt.want {
				t.Errorf("TodosFromNode() = %d items, want %d", len(got), tt.want)
			}
		})
	}
}

func TestPointsOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want int
	}{
		{float64(7), 7},
		{float64(-7), -7},
		{float64(MaxPoints), MaxPoints},
		{float64(1e19), 0},
		{int64(MaxPoints) + 1, 0},
		{"7", 0},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := PointsOf(tt.in); got != tt.want {
			t.Errorf("PointsOf(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
