package packages

import (
	"context"
	"errors"
	"fmt"

	"asset-cache/core/resource"
	"asset-cache/core/storage"

	"go.uber.org/zap"
)

// ErrNoContainer is returned for packaged assets without a container.
var ErrNoContainer = errors.New("packaged asset has no container package")

// DependencySource reports the packages a package depends on.
type DependencySource interface {
	Dependencies(ctx context.Context, pkg string) ([]string, error)
}

// PackageBackend loads package archives from object storage.
type PackageBackend struct {
	client storage.Client
	cfg    storage.Config
	deps   DependencySource
	logger *zap.Logger
}

// NewPackageBackend creates the package backend. deps may be nil, in which
// case packages have no dependencies.
func NewPackageBackend(client storage.Client, cfg storage.Config, deps DependencySource, logger *zap.Logger) *PackageBackend {
	return &PackageBackend{client: client, cfg: cfg, deps: deps, logger: logger}
}

// ObjectName returns the storage object holding package name.
func (b *PackageBackend) ObjectName(name string) string {
	return b.cfg.PackagePrefix + name + ".pkg"
}

func (b *PackageBackend) Load(ctx context.Context, key resource.Key, _ resource.Lookup, progress resource.ProgressFunc) (resource.Handle, error) {
	object := b.ObjectName(key.Name)
	data, err := storage.ReadObject(ctx, b.client, b.cfg.Bucket, object, b.cfg.MaxObjectBytes)
	if err != nil {
		return nil, err
	}
	progress(0.5)

	archive, err := OpenArchive(key.Name, data, b.cfg.MaxEntryBytes)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("Package loaded",
		zap.String("package", key.Name),
		zap.String("object", object),
		zap.Int("entries", len(archive.entries)),
		zap.Int64("bytes", archive.Size()))
	return archive, nil
}

func (b *PackageBackend) Dependencies(ctx context.Context, key resource.Key) ([]resource.Key, error) {
	if b.deps == nil {
		return nil, nil
	}
	names, err := b.deps.Dependencies(ctx, key.Name)
	if err != nil {
		return nil, err
	}
	keys := make([]resource.Key, 0, len(names))
	for _, n := range names {
		keys = append(keys, resource.PackageKey(n))
	}
	return keys, nil
}

func (b *PackageBackend) Free(resource.Handle) error {
	return nil
}

// Asset is an entry extracted from a package.
type Asset struct {
	Package    string
	Name       string
	TargetType string
	Data       []byte
}

// AssetBackend extracts packaged assets and scenes from their loaded
// container package.
type AssetBackend struct {
	logger *zap.Logger
}

// NewAssetBackend creates the packaged asset backend.
func NewAssetBackend(logger *zap.Logger) *AssetBackend {
	return &AssetBackend{logger: logger}
}

func (b *AssetBackend) Load(_ context.Context, key resource.Key, lookup resource.Lookup, progress resource.ProgressFunc) (resource.Handle, error) {
	if key.Container == "" {
		return nil, ErrNoContainer
	}
	src, ok := lookup.Get(resource.PackageKey(key.Container))
	if !ok {
		return nil, fmt.Errorf("container %s is not registered", key.Container)
	}
	archive, ok := src.Handle().(*Archive)
	if !ok {
		return nil, fmt.Errorf("container %s is not loaded", key.Container)
	}

	data, err := archive.ReadFile(key.Name)
	if err != nil {
		return nil, err
	}
	progress(1)
	return &Asset{
		Package:    key.Container,
		Name:       key.Name,
		TargetType: key.TargetType,
		Data:       data,
	}, nil
}

func (b *AssetBackend) Dependencies(_ context.Context, key resource.Key) ([]resource.Key, error) {
	if key.Container == "" {
		return nil, ErrNoContainer
	}
	return []resource.Key{resource.PackageKey(key.Container)}, nil
}

func (b *AssetBackend) Free(resource.Handle) error {
	return nil
}

// Register binds the package, packaged asset and scene categories.
func Register(f *resource.Factory, pkgs *PackageBackend, assets *AssetBackend) error {
	if err := f.Register(resource.CategoryPackage, pkgs); err != nil {
		return err
	}
	if err := f.Register(resource.CategoryPackagedAsset, assets); err != nil {
		return err
	}
	return f.Register(resource.CategoryScene, assets)
}
