// Package reconcile compares the package manifest database with the package
// archives held in object storage.
//
// Both sides are loaded into in-memory indices concurrently: one query pass
// over the manifests and content entries, and a single recursive listing of
// the package prefix (no per-object HEAD calls). The union of package names
// yields one Result per package with presence flags for each side.
//
// # Findings
//
//   - Missing archive: a package declared by a manifest, or named as a
//     dependency or content container, has no archive. Loads of it fail.
//   - Dangling dependency: a missing package other manifests depend on.
//   - Orphan: an archive nothing declares or references.
//
// # Plans
//
// ReconcileWithPlan builds a Plan. With Options.DoPurge it contains one
// delete_manifest action per declared package without archive. ApplyPlan
// executes it only when confirmed and not in dry-run mode.
//
// # Caching
//
// A Reconciler with a positive TTL reuses its last index. Concurrent rebuilds
// share one build.
package reconcile
