package score

import (
	"errors"
	"testing"

	"github.com/benvon/embody/internal/models"
)

func TestTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		todos models.Todos
		want  int
	}{
		{"empty", models.Todos{}, 0},
		{"nil", nil, 0},
		{"checked only", models.Todos{
			"a": {ID: "a", Label: "Run", Points: 10, Checked: true},
			"b": {ID: "b", Label: "Read", Points: 5},
		}, 10},
		{"negative points", models.Todos{
			"a": {ID: "a", Points: -5, Checked: true},
			"b": {ID: "b", Points: 3, Checked: true},
		}, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Total(tt.todos); got != tt.want {
				t.Errorf("Total() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFromNode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		node    any
		want    int
		wantErr bool
	}{
		{"nil", nil, 0, false},
		{"object", map[string]any{
			"a": map[string]any{"points": float64(10), "checked": true},
			"b": map[string]any{"points": float64(5), "checked": false},
		}, 10, false},
		{"array", []any{
			map[string]any{"points": float64(4), "checked": true},
			nil,
			map[string]any{"points": float64(6), "checked": true},
		}, 10, false},
		{"missing points", map[string]any{
			"a": map[string]any{"checked": true},
			"b": map[string]any{"points": "7", "checked": true},
		}, 0, false},
		{"scalar", "not a collection", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FromNode(tt.node)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedCollection) {
					t.Fatalf("FromNode() error = %v, want ErrMalformedCollection", err)
				}
			} else if err != nil {
				t.Fatalf("FromNode() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FromNode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		score         int
		goal          int
		wantReached   bool
		wantNegative  bool
		wantIndicator Indicator
		wantProgress  float64
	}{
		{"goal reached", 100, 100, true, false, IndicatorGoalReached, 100},
		{"negative", -5, 100, false, true, IndicatorNegative, -5},
		{"neither", 50, 100, false, false, IndicatorNeutral, 50},
		{"zero goal", 0, 0, true, false, IndicatorGoalReached, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := Summarize(tt.score, tt.goal)
			if s.GoalReached != tt.wantReached {
				t.Errorf("GoalReached = %v, want %v", s.GoalReached, tt.wantReached)
			}
			if s.Negative != tt.wantNegative {
				t.Errorf("Negative = %v, want %v", s.Negative, tt.wantNegative)
			}
			if s.Indicator != tt.wantIndicator {
				t.Errorf("Indicator = %q, want %q", s.Indicator, tt.wantIndicator)
			}
			if s.Progress != tt.wantProgress {
				t.Errorf("Progress = %v, want %v", s.Progress, tt.wantProgress)
			}
		})
	}
}
