package cmd

import (
	"context"
	"fmt"

	"asset-cache/core/config"
	"asset-cache/core/database"
	"asset-cache/core/loader"
	"asset-cache/core/logger"
	"asset-cache/core/manifest"
	"asset-cache/core/resource"
	"asset-cache/core/storage"
	"asset-cache/core/worker"
	"asset-cache/feature/files"
	"asset-cache/feature/images"
	"asset-cache/feature/packages"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime holds the services shared by the commands.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	store  *manifest.Store
	client storage.Client
	pool   *worker.Pool
	engine *resource.Engine
}

// bootstrap loads the configuration and wires the engine with every backend.
// The manifest database is optional: a failed connection is logged and the
// engine runs without package dependencies or content ids.
func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logg}

	if cfg.Database.Enabled {
		if conn, err := database.Connect(cfg.Database); err != nil {
			logg.Warn("Optional manifest database connection failed", zap.Error(err))
		} else {
			store := manifest.NewStore(conn, logg)
			if err := store.Migrate(ctx); err != nil {
				logg.Warn("Manifest migration failed, running without manifests", zap.Error(err))
			} else {
				rt.db, rt.store = conn, store
				logg.Info("Connected to manifest database", zap.String("driver", cfg.Database.Driver))
			}
		}
	}

	rt.client, err = storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	rt.pool, err = worker.NewPool(cfg.Cache.Workers, cfg.Cache.QueueSize, logg)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	rt.engine = resource.NewEngine(cfg.Cache, logg, rt.pool)
	logg.Debug("Resource engine ready",
		zap.Int("workers", rt.pool.Workers()),
		zap.Int("queue_size", cfg.Cache.QueueSize))

	var deps packages.DependencySource
	if rt.store != nil {
		deps = rt.store
	}
	pkgs := packages.NewPackageBackend(rt.client, cfg.Storage, deps, logg)
	if err := packages.Register(rt.engine.Factory, pkgs, packages.NewAssetBackend(logg)); err != nil {
		return nil, err
	}
	if err := files.Register(rt.engine.Factory, cfg.Files, logg); err != nil {
		return nil, err
	}
	if err := images.Register(rt.engine.Factory, cfg.Images, logg); err != nil {
		return nil, err
	}
	return rt, nil
}

// catalog returns the content id catalog, nil without manifest database.
func (rt *runtime) catalog() loader.Catalog {
	if rt.store == nil {
		return nil
	}
	return rt.store
}

// newLoader creates a loader session on the engine.
func (rt *runtime) newLoader() *loader.Loader {
	var opts []loader.Option
	if c := rt.catalog(); c != nil {
		opts = append(opts, loader.WithCatalog(c))
	}
	return loader.New(rt.engine, rt.logger, opts...)
}

func (rt *runtime) close() {
	if rt.pool != nil {
		if err := rt.pool.Shutdown(); err != nil {
			rt.logger.Warn("Worker pool shutdown failed", zap.Error(err))
		}
	}
	if rt.db != nil {
		if sqlDB, err := rt.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = rt.logger.Sync()
}
