package models

// DateLayout is the format of history keys and lastResetDate
const DateLayout = "2006-01-02"

// DayData is the frozen per-date copy of a user's todos and score
type DayData struct {
	Todos      Todos  `json:"todos,omitempty"`
	Score      int    `json:"score"`
	PointsGoal int    `json:"pointsGoal"`
	Date       string `json:"date"`
}

// DaySummary is one calendar entry
type DaySummary struct {
	Date        string `json:"date"`
	Score       int    `json:"score"`
	PointsGoal  int    `json:"points_goal"`
	GoalReached bool   `json:"goal_reached"`
	ItemCount   int    `json:"item_count"`
}
