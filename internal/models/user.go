package models

// User is the per-account profile record stored at users/{uid}
type User struct {
	UID           string             `json:"uid"`
	Email         string             `json:"email"`
	Name          string             `json:"name,omitempty"`
	EmbodyGoal    string             `json:"embodyGoal,omitempty"`
	PointsGoal    int                `json:"pointsGoal"`
	Todos         Todos              `json:"todos,omitempty"`
	LastResetDate string             `json:"lastResetDate,omitempty"`
	History       map[string]DayData `json:"history,omitempty"`
}

// DisplayName returns the name to greet the user with
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
