// Package storage selects the tree store backend from configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/benvon/embody/internal/cloudstore"
	"github.com/benvon/embody/internal/config"
	"github.com/benvon/embody/internal/database"
	"github.com/benvon/embody/internal/tree"
	"go.uber.org/zap"
)

// Open returns the configured tree store and a function releasing it.
// db backs the postgres backend and may be nil for the others.
func Open(ctx context.Context, cfg *config.Config, db *database.DB, logger *zap.Logger) (tree.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreBackend {
	case config.StoreBackendPostgres, "":
		if db == nil {
			return nil, nil, fmt.Errorf("postgres tree store requires a database connection")
		}
		logger.Info("tree_store_opened", zap.String("backend", config.StoreBackendPostgres))
		return database.NewTreeStore(db), noop, nil
	case config.StoreBackendFirestore:
		fs, err := cloudstore.NewFirestoreTreeStore(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open firestore tree store: %w", err)
		}
		logger.Info("tree_store_opened",
			zap.String("backend", config.StoreBackendFirestore),
			zap.String("project_id", cfg.FirestoreProjectID),
		)
		return fs, fs.Close, nil
	case config.StoreBackendMemory:
		logger.Warn("tree_store_opened", zap.String("backend", config.StoreBackendMemory))
		return tree.NewMemoryStore(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
