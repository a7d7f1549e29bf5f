// Package score derives a user's score and goal indicators from a todo collection.
package score

import "github.com/benvon/embody/internal/models"

// ErrMalformedCollection is returned when a raw todo node is neither an object nor an array
var ErrMalformedCollection = models.ErrMalformedTodos

// Indicator is the display state of a score against its goal
type Indicator string

const (
	IndicatorGoalReached Indicator = "goal_reached"
	IndicatorNegative    Indicator = "negative"
	IndicatorNeutral     Indicator = "neutral"
)

// Summary is the derived score display data
type Summary struct {
	Score       int       `json:"score"`
	PointsGoal  int       `json:"points_goal"`
	Progress    float64   `json:"progress"`
	GoalReached bool      `json:"goal_reached"`
	Negative    bool      `json:"negative"`
	Indicator   Indicator `json:"indicator"`
}

// Total sums the points of checked items.
func Total(todos models.Todos) int {
	total := 0
	for _, item := range todos {
		if item.Checked {
			total += item.Points
		}
	}
	return total
}

// FromNode sums checked points over a raw tree node. Missing or non-numeric
// points count as zero. A scalar node scores zero with ErrMalformedCollection.
func FromNode(node any) (int, error) {
	todos, err := models.TodosFromNode(node)
	return Total(todos), err
}

// Summarize builds the goal and negative indicators for a score.
func Summarize(score, pointsGoal int) Summary {
	s := Summary{
		Score:       score,
		PointsGoal:  pointsGoal,
		GoalReached: score >= pointsGoal,
		Negative:    score < 0,
	}
	if pointsGoal > 0 {
		s.Progress = float64(score) / float64(pointsGoal) * 100
	}
	switch {
	case s.GoalReached:
		s.Indicator = IndicatorGoalReached
	case s.Negative:
		s.Indicator = IndicatorNegative
	default:
		s.Indicator = IndicatorNeutral
	}
	return s
}
