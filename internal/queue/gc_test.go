package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakePurger struct {
	calls     atomic.Int32
	retention atomic.Int64
	n         int
	err       error
}

func (f *fakePurger) PurgeOlderThan(_ context.Context, retention time.Duration) (int, error) {
	f.calls.Add(1)
	f.retention.Store(int64(retention))
	return f.n, f.err
}

func TestGarbageCollector_Sweep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		purger  *fakePurger
		want    int
		wantErr bool
	}{
		{name: "no purger", want: 0},
		{name: "purged", purger: &fakePurger{n: 3}, want: 3},
		{name: "purge failure", purger: &fakePurger{err: errors.New("channel closed")}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var purger DLQPurger
			if tt.purger != nil {
				purger = tt.purger
			}
			gc := NewGarbageCollector(purger, time.Minute, 24*time.Hour, zap.NewNop())
			n, err := gc.Sweep(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Sweep() error = %v, wantErr %v", err, tt.wantErr)
			}
			if n != tt.want {
				t.Errorf("Sweep() = %d, want %d", n, tt.want)
			}
			if tt.purger != nil && time.Duration(tt.purger.retention.Load()) != 24*time.Hour {
				t.Errorf("retention passed = %v, want 24h", time.Duration(tt.purger.retention.Load()))
			}
		})
	}
}

func TestGarbageCollector_StartSweepsImmediately(t *testing.T) {
	t.Parallel()

	purger := &fakePurger{}
	gc := NewGarbageCollector(purger, 24*time.Hour, time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gc.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for purger.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() = %v, want context.Canceled", err)
	}
	if purger.calls.Load() != 1 {
		t.Errorf("PurgeOlderThan called %d times, want 1", purger.calls.Load())
	}
}

func TestGarbageCollector_StartCancelled(t *testing.T) {
	t.Parallel()

	purger := &fakePurger{}
	gc := NewGarbageCollector(purger, time.Hour, time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := gc.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() = %v, want context.Canceled", err)
	}
	if purger.calls.Load() != 0 {
		t.Errorf("swept %d times after cancellation", purger.calls.Load())
	}
}
