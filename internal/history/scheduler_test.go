package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type staticUsers struct {
	uids []string
	err  error
}

func (s staticUsers) List(context.Context) ([]string, error) {
	return s.uids, s.err
}

type recordingDispatcher struct {
	mu        sync.Mutex
	snapshots []string
	rollovers []string
	failFor   string
}

func (d *recordingDispatcher) DispatchSnapshot(_ context.Context, uid string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshots = append(d.snapshots, uid)
	if uid == d.failFor {
		return errors.New("dispatch failed")
	}
	return nil
}

func (d *recordingDispatcher) DispatchRollover(_ context.Context, uid string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rollovers = append(d.rollovers, uid)
	if uid == d.failFor {
		return errors.New("dispatch failed")
	}
	return nil
}

func TestNextMidnight(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{"utc afternoon", time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC), time.UTC, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"exact midnight", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.UTC, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"month end", time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC), time.UTC, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"zone behind utc", time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC), ny, time.Date(2024, 3, 2, 0, 0, 0, 0, ny)},
		{"dst start", time.Date(2024, 3, 9, 12, 0, 0, 0, ny), ny, time.Date(2024, 3, 10, 0, 0, 0, 0, ny)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NextMidnight(tt.now, tt.loc); !got.Equal(tt.want) {
				t.Errorf("NextMidnight(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestScheduler_RolloverAll(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{failFor: "u2"}
	s := NewScheduler(staticUsers{uids: []string{"u1", "u2", "u3"}}, d, time.UTC, zap.NewNop())

	if got := s.RolloverAll(context.Background()); got != 2 {
		t.Errorf("RolloverAll() = %d, want 2", got)
	}
	if len(d.rollovers) != 3 {
		t.Errorf("rollovers dispatched = %v, want all three users", d.rollovers)
	}
}

func TestScheduler_RolloverAllListError(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	s := NewScheduler(staticUsers{err: errors.New("store down")}, d, time.UTC, zap.NewNop())

	if got := s.RolloverAll(context.Background()); got != 0 {
		t.Errorf("RolloverAll() = %d, want 0", got)
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	s := NewScheduler(staticUsers{}, &recordingDispatcher{}, time.UTC, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestScheduler_RunFiresAtMidnight(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	s := NewScheduler(staticUsers{uids: []string{"u1"}}, d, time.UTC, zap.NewNop())
	// 50ms before midnight
	s.now = func() time.Time {
		return time.Date(2024, 3, 1, 23, 59, 59, 950_000_000, time.UTC)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		d.mu.Lock()
		n := len(d.rollovers)
		d.mu.Unlock()
		if n > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("scheduler never dispatched a rollover")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
