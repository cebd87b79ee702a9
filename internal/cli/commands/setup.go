// Package commands implements the dashquery subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/cache"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/config"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/engine"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata/filestore"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata/mongostore"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/secret"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/state"
	"github.com/spf13/cobra"

	// Register adapters.
	_ "github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapters/duckdb"
	_ "github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapters/postgres"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Catalog metadata.Provider
	Cache   *cache.Service
	Store   *state.SQLiteStore
	Engine  *engine.Engine
}

// NewCommandContext opens the catalog and the cache store and builds an engine.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)

	catalog, closeCatalog, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	store, svc, err := openCache(cfg, logger)
	if err != nil {
		closeCatalog()
		return nil, nil, err
	}

	box, err := secret.NewBox(cfg.SecretKey)
	if err != nil {
		closeCatalog()
		_ = store.Close()
		return nil, nil, err
	}

	eng, err := engine.New(engine.Config{
		Metadata: catalog,
		Cache:    svc,
		Secrets:  box,
		Timeout:  cfg.Query.Timeout,
		MaxRows:  cfg.Query.MaxRows,
		Logger:   logger,
	})
	if err != nil {
		closeCatalog()
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		closeCatalog()
		if err := store.Close(); err != nil {
			logger.Warn("failed to close cache store", slog.Any("error", err))
		}
	}

	return &CommandContext{
		Cfg:     cfg,
		Logger:  logger,
		Catalog: catalog,
		Cache:   svc,
		Store:   store,
		Engine:  eng,
	}, cleanup, nil
}

// NewCacheContext opens only the cache store, for the cache subcommands.
func NewCacheContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	store, svc, err := openCache(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return &CommandContext{Cfg: cfg, Logger: logger, Cache: svc, Store: store}, func() { _ = store.Close() }, nil
}

func openCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (metadata.Provider, func(), error) {
	switch cfg.Catalog.Driver {
	case config.CatalogMongo:
		s, err := mongostore.Connect(ctx, cfg.Catalog.Mongo.URI, cfg.Catalog.Mongo.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close(context.Background()) }, nil
	default:
		s, err := filestore.Open(cfg.Catalog.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Catalog.Watch {
			if err := s.Watch(); err != nil {
				return nil, nil, fmt.Errorf("failed to watch catalog: %w", err)
			}
		}
		return s, func() {
			if cfg.Catalog.Watch {
				_ = s.Close()
			}
		}, nil
	}
}

func openCache(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, *cache.Service, error) {
	path := cfg.Cache.Path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	return store, cache.NewService(store, cache.WithLogger(logger)), nil
}
