package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/embody/internal/config"
	"github.com/benvon/embody/internal/database"
	"github.com/benvon/embody/internal/handlers"
	"github.com/benvon/embody/internal/history"
	"github.com/benvon/embody/internal/logger"
	"github.com/benvon/embody/internal/middleware"
	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/queue"
	"github.com/benvon/embody/internal/services/ai"
	"github.com/benvon/embody/internal/session"
	"github.com/benvon/embody/internal/storage"
	"github.com/benvon/embody/internal/telemetry"
	"github.com/benvon/embody/internal/todos"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging, including LLM request previews")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger("server", debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("version", handlers.Version),
		zap.String("server_port", cfg.ServerPort),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("timezone", cfg.Location.String()),
		zap.Bool("queue_enabled", cfg.QueueEnabled()),
		zap.Bool("ai_enabled", cfg.AIEnabled()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(ctx, telemetry.Options{
				ServiceName:    telemetry.ServiceName,
				ServiceVersion: handlers.Version,
				Endpoint:       cfg.OTELEndpoint,
				Insecure:       true,
			})
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	zapLogger.Info("connected_to_redis")

	var jobQueue *queue.RabbitMQQueue
	if cfg.QueueEnabled() {
		jobQueue, err = queue.ConnectWithRetry(ctx, cfg.RabbitMQURL, queue.DefaultConnectAttempts, queue.DefaultConnectDelay, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
		}
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
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

	// Sessions
	tokens, err := session.NewTokenIssuer(cfg.SessionSecret, cfg.SessionIssuer, cfg.SessionTTL)
	if err != nil {
		zapLogger.Fatal("failed_to_create_token_issuer", zap.Error(err))
	}
	authProvider := session.NewProvider(
		database.NewAccountRepository(db),
		tokens,
		session.NewRedisRevocationStore(redisClient),
		zapLogger,
	)
	defer authProvider.Close()

	// Domain services
	profiles := profile.NewService(treeStore, zapLogger)
	recorder := history.NewRecorder(treeStore, profiles, cfg.Location, zapLogger)

	var dispatcher history.Dispatcher = history.NewInlineDispatcher(recorder)
	if jobQueue != nil {
		dispatcher = history.NewQueueDispatcher(jobQueue, cfg.Location)
	}
	observer := history.NewObserver(dispatcher, zapLogger)
	todoStore := todos.NewStore(treeStore, observer, zapLogger)

	suggester, err := createSuggester(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Warn("failed_to_create_ai_provider_suggestions_disabled", zap.Error(err))
		suggester = ai.Disabled{}
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authProvider, profiles, zapLogger)
	sessionHandler := handlers.NewSessionHandler(authProvider)
	todoHandler := handlers.NewTodoHandler(todoStore, profiles, suggester, zapLogger)
	viewHandler := handlers.NewViewHandler(todoStore, profiles, cfg.Location, zapLogger)
	historyHandler := handlers.NewHistoryHandler(recorder, zapLogger)
	settingsHandler := handlers.NewSettingsHandler(profiles, observer, zapLogger)

	healthChecker := handlers.NewHealthChecker().
		AddCheck("database", db.HealthCheck).
		AddCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	if jobQueue != nil {
		healthChecker.AddCheck("rabbitmq", jobQueue.HealthCheck)
	}

	// Hot-reloaded runtime config
	corsReloader := middleware.NewCORSReloader(database.NewCorsConfigRepository(db), cfg.FrontendURL, zapLogger, cfg.ConfigReloadInterval)
	rateLimitReloader, err := middleware.NewRateLimitReloader(redisClient, database.NewRatelimitConfigRepository(db), "", zapLogger, cfg.ConfigReloadInterval)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader", zap.Error(err))
	}
	rateLimitMW := rateLimitReloader.Middleware()
	authMW := middleware.Auth(authProvider, zapLogger)
	rolloverMW := middleware.NewRolloverTracker(recorder, cfg.Location, zapLogger).Middleware()

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order: the first Use is outermost.
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(corsReloader.Middleware())
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", healthChecker.VersionInfo).Methods("GET")
	handlers.NewOpenAPIHandler().RegisterRoutes(r)

	api := r.PathPrefix("/api/v1").Subrouter()

	publicAuth := api.PathPrefix("/auth").Subrouter()
	publicAuth.Use(rateLimitMW)
	authHandler.RegisterPublicRoutes(publicAuth)

	protectedAuth := api.PathPrefix("/auth").Subrouter()
	protectedAuth.Use(authMW)
	protectedAuth.Use(rateLimitMW)
	authHandler.RegisterRoutes(protectedAuth)

	sessionRouter := api.PathPrefix("").Subrouter()
	sessionRouter.Use(middleware.OptionalAuth(authProvider))
	sessionHandler.RegisterRoutes(sessionRouter)

	protect := func(prefix string) *mux.Router {
		sub := api.PathPrefix(prefix).Subrouter()
		sub.Use(authMW)
		sub.Use(rateLimitMW)
		sub.Use(rolloverMW)
		return sub
	}
	todoHandler.RegisterRoutes(protect("/todos"))
	viewHandler.RegisterRoutes(protect("/views"))
	historyHandler.RegisterRoutes(protect("/history"))
	settingsHandler.RegisterRoutes(protect("/settings"))

	// Preflight requests; the CORS middleware has already written the headers.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go corsReloader.Start(ctx)
	go rateLimitReloader.Start(ctx)

	// Without a queue there is no worker process, so midnight rollover runs here.
	if jobQueue == nil {
		scheduler := history.NewScheduler(profiles, dispatcher, cfg.Location, zapLogger)
		go func() {
			if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("rollover_scheduler_stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		zapLogger.Info("server_listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// createSuggester builds the points suggester for the configured provider.
// A missing API key yields ai.Disabled.
func createSuggester(cfg *config.Config, logger *zap.Logger, debugMode bool) (ai.PointsSuggester, error) {
	if !cfg.AIEnabled() {
		return ai.Disabled{}, nil
	}

	providerType := cfg.AIProvider
	if providerType == "" {
		providerType = "openai"
	}
	if providerType == "openai" {
		return ai.NewOpenAIProviderWithLogger(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, logger, debugMode), nil
	}

	suggester, err := ai.NewProviderRegistry().GetProvider(providerType, map[string]string{
		"api_key":  cfg.OpenAIKey,
		"model":    cfg.AIModel,
		"base_url": cfg.AIBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}
	return suggester, nil
}
