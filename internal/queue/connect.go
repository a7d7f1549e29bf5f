package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Retry settings for the initial broker connection
const (
	DefaultConnectAttempts = 10
	DefaultConnectDelay    = 2 * time.Second
	maxConnectDelay        = 30 * time.Second
)

// ConnectWithRetry dials RabbitMQ with exponential backoff, which covers the
// broker still starting next to the service.
func ConnectWithRetry(ctx context.Context, amqpURL string, attempts int, initialDelay time.Duration, logger *zap.Logger) (*RabbitMQQueue, error) {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		q, err := NewRabbitMQQueue(amqpURL, logger)
		if err == nil {
			logger.Info("connected_to_rabbitmq", zap.Int("attempt", attempt+1))
			return q, nil
		}
		lastErr = err

		delay := backoff(initialDelay, attempt)
		logger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", attempts),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}

func backoff(initial time.Duration, attempt int) time.Duration {
	delay := initial * time.Duration(1<<uint(attempt))
	if delay > maxConnectDelay || delay <= 0 {
		return maxConnectDelay
	}
	return delay
}
