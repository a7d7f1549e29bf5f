// Package commands implements the embody-configure subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/embody/internal/config"
	"github.com/benvon/embody/internal/database"
	"github.com/benvon/embody/internal/history"
	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/storage"
	"go.uber.org/zap"
)

// CorsStore reads and writes the runtime CORS row
type CorsStore interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
	Set(ctx context.Context, c *models.CorsConfig) error
}

// RatelimitStore reads and writes the runtime rate limit row
type RatelimitStore interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// Runtime is what a command operates on once connected
type Runtime struct {
	Cors      CorsStore
	Ratelimit RatelimitStore
	Profiles  *profile.Service
	Recorder  *history.Recorder

	closers []func() error
}

// Close releases every connection the runtime opened
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Opener connects a Runtime. Tests substitute their own.
type Opener func(ctx context.Context) (*Runtime, error)

// DefaultOpener loads configuration from the environment and connects to
// Postgres and the configured tree store.
func DefaultOpener(ctx context.Context) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	rt := &Runtime{closers: []func() error{db.Close}}

	logger := zap.NewNop()
	treeStore, closeTree, err := storage.Open(ctx, cfg, db, logger)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("open tree store: %w", err)
	}
	rt.closers = append(rt.closers, closeTree)

	rt.Cors = database.NewCorsConfigRepository(db)
	rt.Ratelimit = database.NewRatelimitConfigRepository(db)
	rt.Profiles = profile.NewService(treeStore, logger)
	rt.Recorder = history.NewRecorder(treeStore, rt.Profiles, cfg.Location, logger)
	return rt, nil
}

// withRuntime opens a runtime for the duration of fn
func withRuntime(ctx context.Context, open Opener, fn func(rt *Runtime) error) error {
	rt, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(rt)
}
