package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const defaultRatelimitRate = "5-S"

// RatelimitConfigSource is implemented by database.RatelimitConfigRepository.
type RatelimitConfigSource interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// RateLimitReloader limits requests per client IP at the rate stored in the
// ratelimit_config row. Counters live in the limiter store, so swapping the
// rate on reload keeps clients' current windows.
type RateLimitReloader struct {
	store       limiter.Store
	repo        RatelimitConfigSource
	defaultRate string
	log         *zap.Logger
	interval    time.Duration

	once    sync.Once
	mu      sync.RWMutex
	rate    string
	current *stdlibmw.Middleware
}

// NewRateLimitReloader keeps counters in Redis under the embody:ratelimit prefix.
func NewRateLimitReloader(redisClient *redis.Client, repo RatelimitConfigSource, defaultRate string, log *zap.Logger, reloadInterval time.Duration) (*RateLimitReloader, error) {
	store, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{
		Prefix: "embody:ratelimit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis store for rate limiter: %w", err)
	}
	return NewRateLimitReloaderWithStore(store, repo, defaultRate, log, reloadInterval), nil
}

// NewRateLimitReloaderWithStore is NewRateLimitReloader over any limiter store.
func NewRateLimitReloaderWithStore(store limiter.Store, repo RatelimitConfigSource, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	if defaultRate == "" {
		defaultRate = defaultRatelimitRate
	}
	return &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
}

// Middleware wraps next with the limiter current at request time.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	r.once.Do(func() { r.Reload(context.Background()) })
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			mw := r.current
			r.mu.RUnlock()
			if mw == nil {
				next.ServeHTTP(w, req)
				return
			}
			mw.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start reloads on every tick until ctx is cancelled.
func (r *RateLimitReloader) Start(ctx context.Context) {
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

// Rate returns the formatted rate currently enforced.
func (r *RateLimitReloader) Rate() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rate
}

// Reload reads the row, seeding it with the default rate when absent, and
// swaps in a limiter for the stored rate. An unparsable row falls back to
// the default.
func (r *RateLimitReloader) Reload(ctx context.Context) {
	rateStr := r.storedRate(ctx)

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r.log.Error("ratelimit_config_invalid_using_default",
			zap.Error(err),
			zap.String("rate", rateStr),
			zap.String("default_rate", r.defaultRate),
		)
		rateStr = r.defaultRate
		if rate, err = limiter.NewRateFromFormatted(rateStr); err != nil {
			r.log.Error("default_ratelimit_invalid", zap.Error(err), zap.String("default_rate", rateStr))
			return
		}
	}

	r.mu.RLock()
	unchanged := r.current != nil && r.rate == rateStr
	r.mu.RUnlock()
	if unchanged {
		return
	}

	mw := stdlibmw.NewMiddleware(limiter.New(r.store, rate), stdlibmw.WithKeyGetter(request.ClientIP))
	r.mu.Lock()
	r.current = mw
	r.rate = rateStr
	r.mu.Unlock()
	r.log.Info("ratelimit_applied", zap.String("rate", rateStr))
}

func (r *RateLimitReloader) storedRate(ctx context.Context) string {
	cfg, err := r.repo.Get(ctx)
	switch {
	case err != nil:
		r.log.Warn("ratelimit_config_load_failed_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
		return r.defaultRate
	case cfg != nil && cfg.Rate != "":
		return cfg.Rate
	}

	if err := r.repo.Set(ctx, &models.RatelimitConfig{Rate: r.defaultRate}); err != nil {
		r.log.Error("ratelimit_default_save_failed",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
	}
	return r.defaultRate
}
