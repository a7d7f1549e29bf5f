package history

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/embody/internal/queue"
	"go.uber.org/zap"
)

// Dispatcher hands history work to whoever performs it
type Dispatcher interface {
	DispatchSnapshot(ctx context.Context, uid string) error
	DispatchRollover(ctx context.Context, uid string) error
}

// InlineDispatcher runs history work on the calling goroutine
type InlineDispatcher struct {
	recorder *Recorder
}

// NewInlineDispatcher creates a dispatcher backed directly by the recorder
func NewInlineDispatcher(recorder *Recorder) *InlineDispatcher {
	return &InlineDispatcher{recorder: recorder}
}

// DispatchSnapshot records today's state
func (d *InlineDispatcher) DispatchSnapshot(ctx context.Context, uid string) error {
	return d.recorder.Record(ctx, uid)
}

// DispatchRollover rolls the user over if the date changed
func (d *InlineDispatcher) DispatchRollover(ctx context.Context, uid string) error {
	_, err := d.recorder.Rollover(ctx, uid)
	return err
}

// QueueDispatcher enqueues history jobs for the worker
type QueueDispatcher struct {
	queue    queue.JobQueue
	location *time.Location
}

// NewQueueDispatcher creates a dispatcher that publishes to q. Rollover jobs
// expire at the next midnight in loc.
func NewQueueDispatcher(q queue.JobQueue, loc *time.Location) *QueueDispatcher {
	if loc == nil {
		loc = time.Local
	}
	return &QueueDispatcher{queue: q, location: loc}
}

// DispatchSnapshot enqueues a history_snapshot job
func (d *QueueDispatcher) DispatchSnapshot(ctx context.Context, uid string) error {
	if err := d.queue.Enqueue(ctx, queue.NewJob(queue.JobTypeHistorySnapshot, uid)); err != nil {
		return fmt.Errorf("failed to enqueue history snapshot for %s: %w", uid, err)
	}
	return nil
}

// DispatchRollover enqueues a day_rollover job
func (d *QueueDispatcher) DispatchRollover(ctx context.Context, uid string) error {
	job := queue.NewJob(queue.JobTypeDayRollover, uid).ExpireAt(NextMidnight(time.Now(), d.location))
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue day rollover for %s: %w", uid, err)
	}
	return nil
}

// Observer adapts a Dispatcher to todo change notifications. Errors are
// logged and swallowed.
type Observer struct {
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewObserver creates a change observer
func NewObserver(dispatcher Dispatcher, logger *zap.Logger) *Observer {
	return &Observer{dispatcher: dispatcher, logger: logger}
}

// Changed dispatches a snapshot of the user's day
func (o *Observer) Changed(ctx context.Context, uid string) {
	if err := o.dispatcher.DispatchSnapshot(ctx, uid); err != nil {
		o.logger.Warn("history_snapshot_failed",
			zap.String("uid", uid),
			zap.Error(err))
	}
}
