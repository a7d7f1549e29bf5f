package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends for the user data tree.
const (
	StoreBackendPostgres  = "postgres"
	StoreBackendFirestore = "firestore"
	StoreBackendMemory    = "memory"
)

// MinSessionSecretLength matches the HS256 key size.
const MinSessionSecretLength = 32

// Config holds application configuration
type Config struct {
	DatabaseURL          string
	ServerPort           string
	BaseURL              string
	FrontendURL          string
	EnableHSTS           bool
	RedisURL             string
	RabbitMQURL          string
	RabbitMQPrefetch     int
	StoreBackend         string
	FirestoreProjectID   string
	SessionSecret        string
	SessionIssuer        string
	SessionTTL           time.Duration
	TimezoneName         string
	Location             *time.Location
	OpenAIKey            string
	AIProvider           string
	AIModel              string
	AIBaseURL            string
	ConfigReloadInterval time.Duration
	DLQRetention         time.Duration
	DLQGCInterval        time.Duration
	WorkerDebugMode      bool
	ServerDebugMode      bool
	OTELEnabled          bool
	OTELEndpoint         string
}

// QueueEnabled reports whether history jobs go through RabbitMQ.
func (c *Config) QueueEnabled() bool {
	return c.RabbitMQURL != ""
}

// AIEnabled reports whether point suggestions are available.
func (c *Config) AIEnabled() bool {
	return c.OpenAIKey != ""
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFrom(os.Getenv)
}

// LoadFrom builds a Config from a lookup function.
func LoadFrom(getenv func(string) string) (*Config, error) {
	e := env{getenv: getenv}
	cfg := &Config{
		DatabaseURL:          e.str("DATABASE_URL", ""),
		ServerPort:           e.str("SERVER_PORT", "8080"),
		BaseURL:              e.str("BASE_URL", "http://localhost:8080"),
		FrontendURL:          e.str("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:           e.boolean("ENABLE_HSTS", false),
		RedisURL:             e.str("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:          e.str("RABBITMQ_URL", ""),
		RabbitMQPrefetch:     e.integer("RABBITMQ_PREFETCH", 1),
		StoreBackend:         strings.ToLower(e.str("STORE_BACKEND", StoreBackendPostgres)),
		FirestoreProjectID:   e.str("FIRESTORE_PROJECT_ID", ""),
		SessionSecret:        e.str("SESSION_SECRET", ""),
		SessionIssuer:        e.str("SESSION_ISSUER", "embody"),
		TimezoneName:         e.str("APP_TIMEZONE", "Local"),
		OpenAIKey:            e.str("OPENAI_API_KEY", ""),
		AIProvider:           e.str("AI_PROVIDER", "openai"),
		AIModel:              e.str("AI_MODEL", ""),
		AIBaseURL:            e.str("AI_BASE_URL", ""),
		WorkerDebugMode:      e.boolean("WORKER_DEBUG_MODE", false),
		ServerDebugMode:      e.boolean("SERVER_DEBUG_MODE", false),
		OTELEnabled:          e.boolean("OTEL_ENABLED", false),
		OTELEndpoint:         e.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	var err error
	if cfg.SessionTTL, err = e.duration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ConfigReloadInterval, err = e.duration("CONFIG_RELOAD_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DLQRetention, err = e.duration("DLQ_RETENTION", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DLQGCInterval, err = e.duration("DLQ_GC_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLength)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}
	switch cfg.StoreBackend {
	case StoreBackendPostgres, StoreBackendMemory:
	case StoreBackendFirestore:
		if cfg.FirestoreProjectID == "" {
			return nil, fmt.Errorf("FIRESTORE_PROJECT_ID is required when STORE_BACKEND=firestore")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.RabbitMQPrefetch < 1 {
		cfg.RabbitMQPrefetch = 1
	}

	loc, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.TimezoneName, err)
	}
	cfg.Location = loc

	return cfg, nil
}

type env struct {
	getenv func(string) string
}

func (e env) str(key, defaultValue string) string {
	if value := strings.TrimSpace(e.getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e env) boolean(key string, defaultValue bool) bool {
	if value := e.getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		return value == "yes"
	}
	return defaultValue
}

func (e env) integer(key string, defaultValue int) int {
	if value := e.getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e env) duration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := e.getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
