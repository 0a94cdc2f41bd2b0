package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"asset-cache/core/config"
	"asset-cache/core/database"
	"asset-cache/core/logger"
	"asset-cache/core/manifest"
	"asset-cache/core/reconcile"
	"asset-cache/core/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	purgeManifests bool
	dryRunPurge    bool
	yesConfirm     bool
)

// reconcileCmd compares package manifests with the archives in storage.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile package manifests with package archives in storage",
	Long: `Reports packages declared or referenced by the manifest database that
have no archive in storage, and archives nothing references.
Optionally purges manifests whose archive is missing.

Examples:
  # Report only
  reconcile

  # Purge manifests without archive (with interactive confirmation)
  reconcile --purge

  # Purge with auto-confirm (non-interactive)
  reconcile --purge --yes`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&purgeManifests, "purge", false, "Delete manifests whose package archive is missing")
	reconcileCmd.Flags().BoolVar(&dryRunPurge, "dry-run", false, "Force dry-run (no mutations even with --yes)")
	reconcileCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")

	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

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
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	store := manifest.NewStore(db, l)
	if err := store.Verify(ctx); err != nil {
		return fmt.Errorf("manifest schema check failed, run 'manifest migrate': %w", err)
	}

	r := reconcile.New(store, client, cfg.Storage, 0, l)
	opts := reconcile.Options{DoPurge: purgeManifests, DryRun: dryRunPurge}

	l.Info("Planning reconciliation...")
	plan, err := r.ReconcileWithPlan(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to plan reconciliation: %w", err)
	}
	printReconcileReport(l, plan)

	if !purgeManifests {
		return nil
	}
	if dryRunPurge {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}
	if len(plan.Actions) == 0 {
		l.Info("No actions required.")
		return nil
	}
	if !confirmDestructiveAction() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	opts.Confirmed = true
	executed, err := r.ApplyPlan(ctx, store, plan, opts)
	if err != nil {
		return err
	}
	l.Info("Successfully executed actions", zap.Int("count", executed))
	return nil
}

// printReconcileReport prints the plan summary and a sample of its findings.
func printReconcileReport(l *zap.Logger, plan *reconcile.Plan) {
	s := plan.Summary
	l.Info("Reconciliation report",
		zap.Int("total_packages", s.TotalPackages),
		zap.Int("missing_archives", s.MissingArchives),
		zap.Int("dangling_dependencies", s.DanglingDependencies),
		zap.Int("orphans", s.Orphans),
		zap.Int("purge_actions", s.PurgeActions),
	)

	const maxShow = 10
	shown := 0
	for _, res := range plan.Results {
		if shown == maxShow {
			break
		}
		switch {
		case res.Missing():
			l.Warn("Package archive missing", zap.String("package", res.Package), zap.Strings("dependents", res.Dependents))
		case res.Orphan():
			l.Info("Orphan package archive", zap.String("package", res.Package), zap.Int64("size", res.Size))
		default:
			continue
		}
		shown++
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\nAuto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\nType 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
