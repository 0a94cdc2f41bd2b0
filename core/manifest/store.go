package manifest

import (
	"context"
	"errors"
	"fmt"

	"asset-cache/core/database"
	"asset-cache/core/resource"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a content id is unknown.
var ErrNotFound = errors.New("manifest entry not found")

// Store reads and writes package manifests and content entries.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a store on db.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Migrate creates or updates the manifest tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&PackageManifest{}, &ContentEntry{}); err != nil {
		return fmt.Errorf("migrate manifest tables: %w", err)
	}
	return nil
}

// Verify checks that the manifest tables carry every column the store reads.
func (s *Store) Verify(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	var errs error
	for _, t := range []struct {
		model   any
		columns []string
	}{
		{&PackageManifest{}, manifestColumns},
		{&ContentEntry{}, contentColumns},
	} {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(t.model); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		missing, err := database.MissingColumns(db, stmt.Schema.Table, t.columns)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if len(missing) > 0 {
			errs = multierr.Append(errs, fmt.Errorf("table %s is missing columns %v", stmt.Schema.Table, missing))
		}
	}
	return errs
}

// Dependencies returns the declared dependencies of pkg. A package without
// manifest has none.
func (s *Store) Dependencies(ctx context.Context, pkg string) ([]string, error) {
	var m PackageManifest
	err := s.db.WithContext(ctx).Where("name = ?", pkg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load manifest of %s: %w", pkg, err)
	}
	return m.Dependencies, nil
}

// LookupContentID resolves a content id to a resource key.
func (s *Store) LookupContentID(ctx context.Context, contentID string) (resource.Key, error) {
	var e ContentEntry
	err := s.db.WithContext(ctx).Where("content_id = ?", contentID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return resource.Key{}, fmt.Errorf("%w: content id %s", ErrNotFound, contentID)
	}
	if err != nil {
		return resource.Key{}, fmt.Errorf("load content id %s: %w", contentID, err)
	}

	category, err := resource.ParseCategory(e.Category)
	if err != nil {
		s.logger.Warn("Content entry has unknown category", zap.String("content_id", contentID), zap.String("category", e.Category))
		return resource.Key{}, err
	}
	return resource.Key{
		Category:   category,
		Container:  e.Container,
		Name:       e.Name,
		TargetType: e.TargetType,
		ContentID:  e.ContentID,
	}, nil
}

// PutManifest inserts or replaces a package manifest.
func (s *Store) PutManifest(ctx context.Context, m PackageManifest) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("save manifest of %s: %w", m.Name, err)
	}
	return nil
}

// PutContent inserts or replaces a content entry.
func (s *Store) PutContent(ctx context.Context, e ContentEntry) error {
	if _, err := resource.ParseCategory(e.Category); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("save content id %s: %w", e.ContentID, err)
	}
	return nil
}

// Manifests lists every package manifest ordered by name.
func (s *Store) Manifests(ctx context.Context) ([]PackageManifest, error) {
	var out []PackageManifest
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list manifests: %w", err)
	}
	return out, nil
}

// ContentContainers returns the distinct non-empty containers referenced by
// content entries, sorted.
func (s *Store) ContentContainers(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&ContentEntry{}).
		Where("container <> ?", "").
		Distinct().Order("container").Pluck("container", &out).Error
	if err != nil {
		return nil, fmt.Errorf("list content containers: %w", err)
	}
	return out, nil
}

// DeleteManifests removes the manifests of the given packages and returns
// the number of rows deleted.
func (s *Store) DeleteManifests(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("name IN ?", names).Delete(&PackageManifest{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete manifests: %w", res.Error)
	}
	return res.RowsAffected, nil
}
