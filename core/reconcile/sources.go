package reconcile

import (
	"context"
	"fmt"
	"strings"

	"asset-cache/core/manifest"
	"asset-cache/core/storage"

	"github.com/minio/minio-go/v7"
)

// ArchiveExtension is the object suffix of package archives.
const ArchiveExtension = ".pkg"

// ManifestSource provides the manifest side of a reconciliation.
type ManifestSource interface {
	Manifests(ctx context.Context) ([]manifest.PackageManifest, error)
	ContentContainers(ctx context.Context) ([]string, error)
}

// Mutator applies planned actions.
type Mutator interface {
	DeleteManifests(ctx context.Context, names []string) (int64, error)
}

// manifestIndex is the manifest side indexed by package name.
type manifestIndex struct {
	declared   map[string][]string
	referenced map[string]struct{}
	dependents map[string][]string
}

func loadManifestIndex(ctx context.Context, src ManifestSource) (*manifestIndex, error) {
	manifests, err := src.Manifests(ctx)
	if err != nil {
		return nil, err
	}
	containers, err := src.ContentContainers(ctx)
	if err != nil {
		return nil, err
	}

	idx := &manifestIndex{
		declared:   make(map[string][]string, len(manifests)),
		referenced: make(map[string]struct{}),
		dependents: make(map[string][]string),
	}
	for _, m := range manifests {
		idx.declared[m.Name] = m.Dependencies
		for _, dep := range m.Dependencies {
			idx.referenced[dep] = struct{}{}
			idx.dependents[dep] = append(idx.dependents[dep], m.Name)
		}
	}
	for _, c := range containers {
		idx.referenced[c] = struct{}{}
	}
	return idx, nil
}

// loadStorageSet lists package archives under prefix in a single pass and
// returns their sizes by package name.
func loadStorageSet(ctx context.Context, client storage.Client, bucket, prefix string) (map[string]int64, error) {
	set := make(map[string]int64)
	for obj := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, obj.Err)
		}
		name, ok := packageName(obj.Key, prefix)
		if !ok {
			continue
		}
		set[name] = obj.Size
	}
	return set, nil
}

// packageName parses "<prefix><name>.pkg" into name.
func packageName(objectKey, prefix string) (string, bool) {
	if !strings.HasPrefix(objectKey, prefix) || !strings.HasSuffix(objectKey, ArchiveExtension) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(objectKey, prefix), ArchiveExtension)
	if name == "" {
		return "", false
	}
	return name, true
}
