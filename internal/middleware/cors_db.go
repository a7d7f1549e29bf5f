package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benvon/embody/internal/database"
	"github.com/benvon/embody/internal/models"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	devOrigin         = "http://localhost:3000"
	defaultCORSMaxAge = 86400
)

// CorsConfigSource is the read side of database.CorsConfigRepository.
type CorsConfigSource interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
}

// CORSReloader applies rs/cors with options read from the cors_config row.
// The options are rebuilt on every reload tick so `embody-configure cors set`
// takes effect without a restart.
type CORSReloader struct {
	repo     CorsConfigSource
	fallback string
	log      *zap.Logger
	interval time.Duration

	once    sync.Once
	mu      sync.RWMutex
	current *cors.Cors
}

// NewCORSReloader creates the reloader. frontendURL is used when the row is
// missing or unreadable.
func NewCORSReloader(repo CorsConfigSource, frontendURL string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	return &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(frontendURL),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware wraps next with whatever CORS options are current at request time.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	r.once.Do(func() { r.Reload(context.Background()) })
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			c := r.current
			r.mu.RUnlock()
			if c == nil {
				next.ServeHTTP(w, req)
				return
			}
			c.ServeHTTP(w, req, next.ServeHTTP)
		})
	}
}

// Start reloads on every tick until ctx is cancelled.
func (r *CORSReloader) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reload(ctx)
		}
	}
}

// Reload reads the row and swaps in new CORS options.
func (r *CORSReloader) Reload(ctx context.Context) {
	origins, allowCreds, maxAge := r.options(ctx)
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: allowCreds,
		MaxAge:           maxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
	})
	r.mu.Lock()
	r.current = c
	r.mu.Unlock()
}

func (r *CORSReloader) options(ctx context.Context) ([]string, bool, int) {
	cfg, err := r.repo.Get(ctx)
	if err != nil {
		r.log.Warn("cors_config_load_failed_using_fallback", zap.Error(err))
	}
	if err != nil || cfg == nil {
		origins := database.AllowedOriginsSlice(r.fallback)
		if len(origins) == 0 {
			origins = []string{devOrigin}
		}
		return origins, true, defaultCORSMaxAge
	}

	origins := database.AllowedOriginsSlice(cfg.AllowedOrigins)
	if len(origins) == 0 {
		origins = []string{devOrigin}
	}
	return origins, cfg.AllowCredentials, cfg.MaxAge
}
