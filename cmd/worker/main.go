package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/embody/internal/config"
	"github.com/benvon/embody/internal/database"
	"github.com/benvon/embody/internal/history"
	"github.com/benvon/embody/internal/logger"
	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/queue"
	"github.com/benvon/embody/internal/storage"
	"github.com/benvon/embody/internal/telemetry"
	"github.com/benvon/embody/internal/workers"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger("worker", debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	if !cfg.QueueEnabled() {
		zapLogger.Fatal("worker_requires_rabbitmq_url")
	}

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("timezone", cfg.Location.String()),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		tp, err := telemetry.InitTracer(ctx, telemetry.Options{
			ServiceName: telemetry.ServiceName + "-worker",
			Endpoint:    cfg.OTELEndpoint,
			Insecure:    true,
		})
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	var db *database.DB
	if cfg.StoreBackend == config.StoreBackendPostgres {
		db, err = database.New(cfg.DatabaseURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_database")
	}

	treeStore, closeTree, err := storage.Open(ctx, cfg, db, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_open_tree_store", zap.Error(err))
	}
	defer func() {
		if err := closeTree(); err != nil {
			zapLogger.Warn("failed_to_close_tree_store", zap.Error(err))
		}
	}()

	jobQueue, err := queue.ConnectWithRetry(ctx, cfg.RabbitMQURL, queue.DefaultConnectAttempts, queue.DefaultConnectDelay, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	profiles := profile.NewService(treeStore, zapLogger)
	recorder := history.NewRecorder(treeStore, profiles, cfg.Location, zapLogger)
	worker := workers.NewHistoryWorker(recorder, zapLogger)

	msgs, errs, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}
	go worker.Run(ctx, msgs, errs)

	// Midnight rollover is scheduled here when the service runs with a queue.
	scheduler := history.NewScheduler(profiles, history.NewQueueDispatcher(jobQueue, cfg.Location), cfg.Location, zapLogger)
	go func() {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("rollover_scheduler_stopped", zap.Error(err))
		}
	}()

	gc := queue.NewGarbageCollector(jobQueue, cfg.DLQGCInterval, cfg.DLQRetention, zapLogger)
	go func() {
		if err := gc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped", zap.Error(err))
		}
	}()
	zapLogger.Info("worker_started",
		zap.Duration("dlq_gc_interval", cfg.DLQGCInterval),
		zap.Duration("dlq_retention", cfg.DLQRetention),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("worker_shutting_down")
	cancel()
	zapLogger.Info("worker_stopped")
}
