package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asset-cache/core/feature"
	"asset-cache/core/logger"
	"asset-cache/core/middleware/auth"
	"asset-cache/core/middleware/rayid"
	"asset-cache/core/reconcile"
	"asset-cache/core/sweeper"
	"asset-cache/feature/diagnostics"
	"asset-cache/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the asset cache server",
	Long: `Starts the resource engine, the maintenance sweeper and the HTTP server
exposing the cache diagnostics.`,
	RunE: runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	logg := rt.logger
	zap.ReplaceGlobals(logg)

	sw, err := sweeper.New(rt.engine.Table, rt.cfg.Cache, logg)
	if err != nil {
		return err
	}
	sw.Start()
	defer func() {
		if err := sw.Stop(); err != nil {
			logg.Warn("Sweeper shutdown failed", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID first so every later log line carries it.
	app.Use(rayid.New(), logger.Requests(logg))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey, Skip: []string{"/health"}}))

	mgr := feature.NewManager(logg)
	svc := diagnostics.NewService(rt.engine, rt.catalog(), sw, logg)
	if err := mgr.Register(diagnostics.NewFeature(svc, rt.cfg.Server.Diagnostics)); err != nil {
		return err
	}
	checkOpts := []integrity.Option{integrity.WithRoots(afero.NewOsFs(), map[string]string{
		"files.root":       rt.cfg.Files.Root,
		"files.local_root": rt.cfg.Files.LocalRoot,
	})}
	if rt.store != nil {
		r := reconcile.New(rt.store, rt.client, rt.cfg.Storage, time.Minute, logg)
		checkOpts = append(checkOpts, integrity.WithManifests(rt.store, r))
	}
	if err := mgr.Register(integrity.NewFeature(integrity.NewService(rt.client, rt.cfg.Storage, logg, checkOpts...))); err != nil {
		return err
	}
	if err := mgr.LoadAll(app); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("port", rt.cfg.Server.Port))
		errCh <- app.Listen(rt.cfg.Server.Addr())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logg.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(rt.cfg.Server.ShutdownTimeout()); err != nil {
		logg.Warn("Server shutdown failed", zap.Error(err))
	}
	stats := rt.engine.Table.Statistics()
	logg.Info("Cache state at shutdown",
		zap.Int("entries", stats.Entries),
		zap.Int("referenced", stats.Referenced),
		zap.Int("ready", stats.Ready))
	return nil
}
