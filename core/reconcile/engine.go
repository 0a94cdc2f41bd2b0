package reconcile

import (
	"context"
	"sort"
	"time"

	"asset-cache/core/storage"

	"go.uber.org/zap"
)

// Reconciler compares package manifests with the package archives in storage.
type Reconciler struct {
	manifests ManifestSource
	client    storage.Client
	bucket    string
	prefix    string
	cache     indexCache
	logger    *zap.Logger
}

// New creates a reconciler. Archives are listed under cfg.PackagePrefix of
// cfg.Bucket. A positive ttl caches the built index.
func New(manifests ManifestSource, client storage.Client, cfg storage.Config, ttl time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		manifests: manifests,
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    cfg.PackagePrefix,
		cache:     indexCache{ttl: ttl},
		logger:    logger,
	}
}

// ReconcileAll returns one result per package known to either side, sorted
// by package name.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]Result, error) {
	idx, err := r.Index(ctx)
	if err != nil {
		return nil, err
	}
	return idx.results(), nil
}

// ReconcileOne returns the result for a single package.
func (r *Reconciler) ReconcileOne(ctx context.Context, name string) (Result, error) {
	idx, err := r.Index(ctx)
	if err != nil {
		return Result{}, err
	}
	return idx.result(name), nil
}

func (idx *Index) union() map[string]struct{} {
	union := make(map[string]struct{}, len(idx.archives))
	for name := range idx.manifests.declared {
		union[name] = struct{}{}
	}
	for name := range idx.manifests.referenced {
		union[name] = struct{}{}
	}
	for name := range idx.archives {
		union[name] = struct{}{}
	}
	return union
}

func (idx *Index) result(name string) Result {
	_, declared := idx.manifests.declared[name]
	_, referenced := idx.manifests.referenced[name]
	size, stored := idx.archives[name]

	dependents := append([]string(nil), idx.manifests.dependents[name]...)
	sort.Strings(dependents)
	return Result{
		Package:    name,
		Declared:   declared,
		Referenced: referenced,
		Stored:     stored,
		Size:       size,
		Dependents: dependents,
	}
}

func (idx *Index) results() []Result {
	union := idx.union()
	results := make([]Result, 0, len(union))
	for name := range union {
		results = append(results, idx.result(name))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Package < results[j].Package
	})
	return results
}
