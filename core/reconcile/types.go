package reconcile

// Result is the reconciliation output for a single package.
type Result struct {
	// Package is the package name.
	Package string `json:"package"`

	// Declared indicates the package has a manifest row.
	Declared bool `json:"declared"`

	// Referenced indicates another manifest or a content entry names the package.
	Referenced bool `json:"referenced"`

	// Stored indicates the package archive exists in storage.
	Stored bool `json:"stored"`

	// Size is the archive size in bytes, 0 when not stored.
	Size int64 `json:"size"`

	// Dependents lists the declared packages depending on this one.
	Dependents []string `json:"dependents,omitempty"`
}

// Missing reports whether the package is known to the manifests but has no archive.
func (r Result) Missing() bool {
	return (r.Declared || r.Referenced) && !r.Stored
}

// Orphan reports whether the archive exists but nothing declares or references it.
func (r Result) Orphan() bool {
	return r.Stored && !r.Declared && !r.Referenced
}

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionDeleteManifest deletes the manifest of a package without archive.
	ActionDeleteManifest ActionType = "delete_manifest"
)

// Action represents a planned mutation operation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the package name.
	Key string `json:"key"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`
}

// Plan contains reconciliation results and planned actions.
type Plan struct {
	Results []Result `json:"results"`
	Actions []Action `json:"actions"`
	Summary Summary  `json:"summary"`
}

// Summary provides aggregate counts for a plan.
type Summary struct {
	// TotalPackages is the number of distinct packages across all sources.
	TotalPackages int `json:"total_packages"`

	// MissingArchives counts declared or referenced packages without archive.
	MissingArchives int `json:"missing_archives"`

	// Orphans counts archives nothing declares or references.
	Orphans int `json:"orphans"`

	// DanglingDependencies counts missing packages another manifest depends on.
	DanglingDependencies int `json:"dangling_dependencies"`

	// PurgeActions counts planned manifest deletions.
	PurgeActions int `json:"purge_actions"`
}

// Options controls reconcile behavior.
type Options struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// DoPurge plans the deletion of manifests whose archive is missing.
	DoPurge bool

	// Confirmed indicates the user confirmed destructive actions.
	// If false, mutations will not execute regardless of DryRun.
	Confirmed bool
}
