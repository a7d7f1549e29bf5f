package history

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// UserLister enumerates the uids to roll over
type UserLister interface {
	List(ctx context.Context) ([]string, error)
}

// NextMidnight returns the first instant of the day after t in loc.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// Scheduler rolls every user over at local midnight
type Scheduler struct {
	users      UserLister
	dispatcher Dispatcher
	location   *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

// NewScheduler creates a midnight rollover scheduler
func NewScheduler(users UserLister, dispatcher Dispatcher, loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		users:      users,
		dispatcher: dispatcher,
		location:   loc,
		now:        time.Now,
		logger:     logger,
	}
}

// Run arms a timer for the next midnight, rolls over on fire and re-arms.
// It returns when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := NextMidnight(s.now(), s.location)
		timer := time.NewTimer(next.Sub(s.now()))
		s.logger.Info("rollover_scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			s.RolloverAll(ctx)
		}
	}
}

// RolloverAll dispatches a rollover for every stored user and returns how
// many dispatches succeeded.
func (s *Scheduler) RolloverAll(ctx context.Context) int {
	uids, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("rollover_list_users_failed", zap.Error(err))
		return 0
	}

	ok := 0
	for _, uid := range uids {
		if ctx.Err() != nil {
			break
		}
		if err := s.dispatcher.DispatchRollover(ctx, uid); err != nil {
			s.logger.Warn("rollover_dispatch_failed",
				zap.String("uid", uid),
				zap.Error(err))
			continue
		}
		ok++
	}
	s.logger.Info("rollover_pass_completed",
		zap.Int("users", len(uids)),
		zap.Int("dispatched", ok))
	return ok
}
