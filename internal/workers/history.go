package workers

import (
	"context"
	"fmt"

	"github.com/benvon/embody/internal/queue"
	"github.com/benvon/embody/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// HistoryRecorder is the part of history.Recorder the worker drives.
type HistoryRecorder interface {
	Record(ctx context.Context, uid string) error
	Rollover(ctx context.Context, uid string) (bool, error)
}

// HistoryWorker processes history snapshot and day rollover jobs
type HistoryWorker struct {
	recorder HistoryRecorder
	logger   *zap.Logger
}

// NewHistoryWorker creates a new history worker
func NewHistoryWorker(recorder HistoryRecorder, logger *zap.Logger) *HistoryWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryWorker{recorder: recorder, logger: logger}
}

// ProcessJob runs one job and settles its delivery. Failed jobs go to the
// dead letter queue; they are never requeued.
func (w *HistoryWorker) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job
	ctx, span := telemetry.StartJobSpan(ctx, string(job.Type), job.ID.String())
	defer span.End()

	if err := w.run(ctx, job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Error("job_nack_failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(nackErr),
			)
		}
		return err
	}
	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

func (w *HistoryWorker) run(ctx context.Context, job *queue.Job) error {
	if job.UserID == "" {
		return fmt.Errorf("job %s has no user", job.ID)
	}
	if job.IsExpired() {
		w.logger.Info("job_expired",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
		return nil
	}

	switch job.Type {
	case queue.JobTypeHistorySnapshot:
		if err := w.recorder.Record(ctx, job.UserID); err != nil {
			return fmt.Errorf("failed to record history: %w", err)
		}
	case queue.JobTypeDayRollover:
		rolled, err := w.recorder.Rollover(ctx, job.UserID)
		if err != nil {
			return fmt.Errorf("failed to roll over day: %w", err)
		}
		w.logger.Debug("rollover_job_done",
			zap.String("user_id", job.UserID),
			zap.Bool("rolled", rolled),
		)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	return nil
}

// Run processes messages until ctx is done or the channel closes.
func (w *HistoryWorker) Run(ctx context.Context, msgs <-chan *queue.Message, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Error("queue_error", zap.Error(err))
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Info("message_channel_closed")
				return
			}
			if err := w.ProcessJob(ctx, msg); err != nil {
				w.logger.Error("job_failed",
					zap.Error(err),
					zap.String("job_id", msg.Job.ID.String()),
					zap.String("job_type", string(msg.Job.Type)),
				)
			}
		}
	}
}
