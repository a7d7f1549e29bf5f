package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/request"
	"go.uber.org/zap"
)

// DayRoller closes a user's previous day if the local date has changed.
type DayRoller interface {
	Rollover(ctx context.Context, uid string) (bool, error)
}

// RolloverTracker rolls each user over once per local day, on the first
// authenticated request of that day. The rollover completes before the
// request reaches its handler, so a mutation never lands in the day being
// closed.
type RolloverTracker struct {
	roller   DayRoller
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger

	mu   sync.Mutex
	seen map[string]string // uid -> date last rolled over
}

// NewRolloverTracker creates a tracker keyed on dates in loc.
func NewRolloverTracker(roller DayRoller, loc *time.Location, logger *zap.Logger) *RolloverTracker {
	if loc == nil {
		loc = time.Local
	}
	return &RolloverTracker{
		roller:   roller,
		location: loc,
		now:      time.Now,
		logger:   logger,
		seen:     make(map[string]string),
	}
}

// Middleware must run after Auth.
func (t *RolloverTracker) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if uid := request.UserID(r); uid != "" && t.claim(uid) {
				if _, err := t.roller.Rollover(r.Context(), uid); err != nil {
					t.forget(uid)
					t.logger.Warn("rollover_failed",
						zap.String("user_id", uid),
						zap.Error(err),
					)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// claim reports whether uid has not been rolled over today, and marks it.
func (t *RolloverTracker) claim(uid string) bool {
	today := t.now().In(t.location).Format(models.DateLayout)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seen[uid] == today {
		return false
	}
	t.seen[uid] = today
	return true
}

func (t *RolloverTracker) forget(uid string) {
	t.mu.Lock()
	delete(t.seen, uid)
	t.mu.Unlock()
}
