package cmd

import (
	"context"
	"fmt"
	"strings"

	"asset-cache/core/config"
	"asset-cache/core/database"
	"asset-cache/core/logger"
	"asset-cache/core/manifest"
	"asset-cache/core/resource"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	manifestDeps       []string
	manifestTargetType string
)

// manifestCmd is the parent command for manifest database operations.
var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Manage package dependency manifests and content ids",
}

var manifestMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the manifest tables",
	RunE: withManifestStore(func(ctx context.Context, l *zap.Logger, s *manifest.Store, _ []string) error {
		if err := s.Migrate(ctx); err != nil {
			return err
		}
		l.Info("Manifest tables migrated")
		return nil
	}),
}

var manifestVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the manifest tables carry every required column",
	RunE: withManifestStore(func(ctx context.Context, l *zap.Logger, s *manifest.Store, _ []string) error {
		if err := s.Verify(ctx); err != nil {
			return err
		}
		l.Info("Manifest schema ok")
		return nil
	}),
}

var manifestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List package manifests",
	RunE: withManifestStore(func(ctx context.Context, l *zap.Logger, s *manifest.Store, _ []string) error {
		ms, err := s.Manifests(ctx)
		if err != nil {
			return err
		}
		for _, m := range ms {
			l.Info("Package", zap.String("name", m.Name), zap.Strings("dependencies", m.Dependencies))
		}
		l.Info("Manifests listed", zap.Int("count", len(ms)))
		return nil
	}),
}

var manifestPutPackageCmd = &cobra.Command{
	Use:   "put-package NAME",
	Short: "Declare the dependencies of a package",
	Args:  cobra.ExactArgs(1),
	RunE: withManifestStore(func(ctx context.Context, l *zap.Logger, s *manifest.Store, args []string) error {
		m := manifest.PackageManifest{Name: args[0], Dependencies: manifestDeps}
		if err := s.PutManifest(ctx, m); err != nil {
			return err
		}
		l.Info("Manifest saved", zap.String("name", m.Name), zap.Strings("dependencies", m.Dependencies))
		return nil
	}),
}

var manifestPutContentCmd = &cobra.Command{
	Use:   "put-content CONTENT_ID category:container/name",
	Short: "Map a content id to a resource",
	Args:  cobra.ExactArgs(2),
	RunE: withManifestStore(func(ctx context.Context, l *zap.Logger, s *manifest.Store, args []string) error {
		key, err := resource.ParseKey(args[1])
		if err != nil {
			return err
		}
		e := manifest.ContentEntry{
			ContentID:  strings.TrimSpace(args[0]),
			Category:   key.Category.String(),
			Container:  key.Container,
			Name:       key.Name,
			TargetType: manifestTargetType,
		}
		if e.ContentID == "" {
			return fmt.Errorf("content id is empty")
		}
		if err := s.PutContent(ctx, e); err != nil {
			return err
		}
		l.Info("Content id saved", zap.String("content_id", e.ContentID), zap.Stringer("key", key.ID()))
		return nil
	}),
}

func init() {
	manifestPutPackageCmd.Flags().StringSliceVar(&manifestDeps, "deps", nil, "Packages this package depends on")
	manifestPutContentCmd.Flags().StringVar(&manifestTargetType, "type", "", "Target type of the resource (e.g. texture)")

	manifestCmd.AddCommand(manifestMigrateCmd, manifestVerifyCmd, manifestListCmd, manifestPutPackageCmd, manifestPutContentCmd)
	RootCmd.AddCommand(manifestCmd)
}

type manifestRun func(ctx context.Context, l *zap.Logger, s *manifest.Store, args []string) error

// withManifestStore connects to the manifest database before running fn.
// Unlike serve, these commands fail without a database.
func withManifestStore(fn manifestRun) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		l, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer l.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		return fn(cmd.Context(), l, manifest.NewStore(db, l), args)
	}
}
