package integrity

import (
	"context"
	"errors"

	"asset-cache/core/reconcile"
	"asset-cache/core/storage"
	"asset-cache/feature/integrity/checks"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrNoManifests is returned by package checks without manifest database.
var ErrNoManifests = errors.New("manifest database disabled")

// Service handles integrity checks.
type Service struct {
	client     storage.Client
	storage    storage.Config
	fs         afero.Fs
	roots      map[string]string
	verifier   checks.Verifier
	reconciler *reconcile.Reconciler
	logger     *zap.Logger
}

// Option configures optional checks.
type Option func(*Service)

// WithRoots enables the local root check on fs.
func WithRoots(fs afero.Fs, roots map[string]string) Option {
	return func(s *Service) { s.fs, s.roots = fs, roots }
}

// WithManifests enables the schema and package checks.
func WithManifests(v checks.Verifier, r *reconcile.Reconciler) Option {
	return func(s *Service) { s.verifier, s.reconciler = v, r }
}

// NewService creates a new integrity service.
func NewService(client storage.Client, cfg storage.Config, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		client:  client,
		storage: cfg,
		fs:      afero.NewOsFs(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckStorage verifies the bucket and the package prefix.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	return checks.CheckStorage(ctx, s.client, s.storage.Bucket, s.storage.PackagePrefix)
}

// CheckRoots returns the configured roots that are missing.
func (s *Service) CheckRoots() ([]string, error) {
	return checks.CheckRoots(s.fs, s.roots)
}

// CheckSchema verifies the manifest tables.
func (s *Service) CheckSchema(ctx context.Context) checks.SchemaReport {
	return checks.CheckSchema(ctx, s.verifier)
}

// CheckPackages reconciles manifests with package archives.
func (s *Service) CheckPackages(ctx context.Context) (*reconcile.Plan, error) {
	if s.reconciler == nil {
		return nil, ErrNoManifests
	}
	return s.reconciler.ReconcileWithPlan(ctx, reconcile.Options{})
}
