package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ReconcileWithPlan performs reconciliation and returns a plan with results
// and actions. It does NOT execute actions; use ApplyPlan for that.
func (r *Reconciler) ReconcileWithPlan(ctx context.Context, opts Options) (*Plan, error) {
	results, err := r.ReconcileAll(ctx)
	if err != nil {
		return nil, err
	}
	summary, actions := buildPlan(results, opts)
	return &Plan{Results: results, Actions: actions, Summary: summary}, nil
}

// buildPlan derives the summary and the purge actions from results.
func buildPlan(results []Result, opts Options) (Summary, []Action) {
	var (
		summary Summary
		actions = []Action{}
	)
	summary.TotalPackages = len(results)

	for _, res := range results {
		if res.Orphan() {
			summary.Orphans++
		}
		if !res.Missing() {
			continue
		}
		summary.MissingArchives++
		if len(res.Dependents) > 0 {
			summary.DanglingDependencies++
		}
		// Only declared manifests can be purged; references live in other rows.
		if opts.DoPurge && res.Declared {
			actions = append(actions, Action{
				Type:   ActionDeleteManifest,
				Key:    res.Package,
				Reason: "archive missing in storage",
			})
			summary.PurgeActions++
		}
	}
	return summary, actions
}

// ApplyPlan executes the actions of plan through m and returns the number of
// actions executed. Requires opts.Confirmed=true and opts.DryRun=false.
func (r *Reconciler) ApplyPlan(ctx context.Context, m Mutator, plan *Plan, opts Options) (int, error) {
	if !opts.Confirmed || opts.DryRun || plan == nil {
		return 0, nil
	}

	var names []string
	for _, a := range plan.Actions {
		if a.Type == ActionDeleteManifest {
			names = append(names, a.Key)
		}
	}
	if len(names) == 0 {
		return 0, nil
	}

	deleted, err := m.DeleteManifests(ctx, names)
	if err != nil {
		return 0, fmt.Errorf("failed to purge manifests: %w", err)
	}
	r.Invalidate()
	r.logger.Info("Purged manifests without archive", zap.Int64("count", deleted))
	return int(deleted), nil
}
