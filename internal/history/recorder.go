// Package history snapshots each user's day into users/{uid}/history and
// rolls the live collection over when the local date changes.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/score"
	"github.com/benvon/embody/internal/tree"
	"go.uber.org/zap"
)

// ErrDayNotFound is returned when no snapshot exists for a date
var ErrDayNotFound = errors.New("history day not found")

// Recorder writes and reads per-date snapshots
type Recorder struct {
	store    tree.Store
	profiles *profile.Service
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Recorder
type Option func(*Recorder)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a recorder whose dates are local to loc
func NewRecorder(store tree.Store, profiles *profile.Service, loc *time.Location, logger *zap.Logger, opts ...Option) *Recorder {
	if loc == nil {
		loc = time.Local
	}
	r := &Recorder{
		store:    store,
		profiles: profiles,
		location: loc,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Today is the current date in the recorder's zone
func (r *Recorder) Today() string {
	return r.now().In(r.location).Format(models.DateLayout)
}

// Location is the zone dates are computed in
func (r *Recorder) Location() *time.Location {
	return r.location
}

// Snapshot writes DayData for date.
func (r *Recorder) Snapshot(ctx context.Context, uid, date string, pointsGoal int, todos models.Todos) error {
	day := models.DayData{
		Todos:      todos,
		Score:      score.Total(todos),
		PointsGoal: pointsGoal,
		Date:       date,
	}
	if err := r.store.Write(ctx, profile.DayPath(uid, date), day); err != nil {
		return fmt.Errorf("failed to write history %s for %s: %w", date, uid, err)
	}
	return nil
}

// Record snapshots the user's current state under today's date.
func (r *Recorder) Record(ctx context.Context, uid string) error {
	user, err := r.profiles.Get(ctx, uid)
	if err != nil {
		return err
	}
	return r.Snapshot(ctx, uid, r.Today(), user.PointsGoal, user.Todos)
}

// Changed records after a mutation. Failures are logged, never returned.
func (r *Recorder) Changed(ctx context.Context, uid string) {
	if err := r.Record(ctx, uid); err != nil {
		r.logger.Warn("history_snapshot_failed",
			zap.String("uid", uid),
			zap.Error(err))
	}
}

// Rollover closes the previous day and starts today with an empty collection.
// It reports whether a rollover happened. A user with no lastResetDate only
// starts tracking today.
func (r *Recorder) Rollover(ctx context.Context, uid string) (bool, error) {
	user, err := r.profiles.Get(ctx, uid)
	if err != nil {
		return false, err
	}

	today := r.Today()
	if user.LastResetDate == today {
		return false, nil
	}

	if user.LastResetDate == "" {
		if err := r.store.Write(ctx, profile.LastResetDatePath(uid), today); err != nil {
			return false, fmt.Errorf("failed to start day tracking for %s: %w", uid, err)
		}
		return false, nil
	}

	if err := r.Snapshot(ctx, uid, user.LastResetDate, user.PointsGoal, user.Todos); err != nil {
		return false, err
	}

	err = r.store.Update(ctx, profile.UserPath(uid), map[string]any{
		"todos":         nil,
		"lastResetDate": today,
	})
	if err != nil {
		return false, fmt.Errorf("failed to reset todos for %s: %w", uid, err)
	}

	if err := r.Snapshot(ctx, uid, today, user.PointsGoal, nil); err != nil {
		return true, err
	}

	r.logger.Info("day_rollover_completed",
		zap.String("uid", uid),
		zap.String("previous_date", user.LastResetDate),
		zap.String("date", today))
	return true, nil
}

// Day returns the snapshot for one date.
func (r *Recorder) Day(ctx context.Context, uid, date string) (*models.DayData, error) {
	node, err := r.store.Read(ctx, profile.DayPath(uid, date))
	if err != nil {
		return nil, fmt.Errorf("failed to read history %s for %s: %w", date, uid, err)
	}
	if node == nil {
		return nil, fmt.Errorf("%s: %w", date, ErrDayNotFound)
	}
	var day models.DayData
	if err := tree.Decode(node, &day); err != nil {
		return nil, fmt.Errorf("failed to decode history %s for %s: %w", date, uid, err)
	}
	if day.Date == "" {
		day.Date = date
	}
	return &day, nil
}

// Calendar summarizes every recorded day, oldest first. Days that cannot be
// decoded are logged and left out.
func (r *Recorder) Calendar(ctx context.Context, uid string) ([]models.DaySummary, error) {
	node, err := r.store.Read(ctx, profile.HistoryPath(uid))
	if err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", uid, err)
	}
	dates, ok := node.(map[string]any)
	if !ok && node != nil {
		r.logger.Warn("history_malformed",
			zap.String("uid", uid),
			zap.String("type", fmt.Sprintf("%T", node)))
	}

	summaries := make([]models.DaySummary, 0, len(dates))
	for date, raw := range dates {
		var day models.DayData
		if err := tree.Decode(raw, &day); err != nil {
			r.logger.Warn("history_day_malformed",
				zap.String("uid", uid),
				zap.String("date", date),
				zap.Error(err))
			continue
		}
		summaries = append(summaries, models.DaySummary{
			Date:        date,
			Score:       day.Score,
			PointsGoal:  day.PointsGoal,
			GoalReached: day.Score >= day.PointsGoal,
			ItemCount:   len(day.Todos),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date < summaries[j].Date
	})
	return summaries, nil
}
