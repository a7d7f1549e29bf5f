package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeHistorySnapshot records the user's current day into history
	JobTypeHistorySnapshot JobType = "history_snapshot"
	// JobTypeDayRollover closes the previous day and clears the live todos
	JobTypeDayRollover JobType = "day_rollover"
)

// Job represents a job in the queue
type Job struct {
	ID        uuid.UUID      `json:"id"`
	Type      JobType        `json:"type"`
	UserID    string         `json:"user_id"`
	NotAfter  *time.Time     `json:"not_after,omitempty"` // nil = no expiration
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewJob creates a new job for a user
func NewJob(jobType JobType, userID string) *Job {
	return &Job{
		ID:        uuid.New(),
		Type:      jobType,
		UserID:    userID,
		Metadata:  make(map[string]any),
		CreatedAt: time.Now(),
	}
}

// ExpireAt sets the latest time the job may still be processed
func (j *Job) ExpireAt(t time.Time) *Job {
	j.NotAfter = &t
	return j
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}
