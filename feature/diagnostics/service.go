package diagnostics

import (
	"context"
	"errors"
	"fmt"

	"asset-cache/core/loader"
	"asset-cache/core/resource"
	"asset-cache/core/sweeper"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrEmptyRequest is returned when a preload names nothing to load.
var ErrEmptyRequest = errors.New("preload request is empty")

// JobLister exposes the scheduled maintenance jobs.
type JobLister interface {
	Jobs() []sweeper.JobInfo
}

// StatsReport aggregates the cache counters.
type StatsReport struct {
	Categories []string                       `json:"categories"`
	Table      resource.Stats                 `json:"table"`
	Arenas     map[string]resource.ArenaStats `json:"arenas"`
	Jobs       []sweeper.JobInfo              `json:"jobs,omitempty"`
}

// PreloadRequest lists resources to warm up. Keys use the
// "category:container/name" form.
type PreloadRequest struct {
	Keys       []string `json:"keys"`
	Paths      []string `json:"paths"`
	ContentIDs []string `json:"content_ids"`
	Containers []string `json:"containers"`
	// Unload drops the resources again once loaded instead of keeping them warm.
	Unload bool `json:"unload"`
}

func (r PreloadRequest) empty() bool {
	return len(r.Keys)+len(r.Paths)+len(r.ContentIDs)+len(r.Containers) == 0
}

// PreloadResult reports the outcome of a preload.
type PreloadResult struct {
	Tracked  int      `json:"tracked"`
	Ready    []string `json:"ready"`
	Errors   []string `json:"errors,omitempty"`
	Progress float64  `json:"progress"`
}

// Service runs diagnostics against one engine.
type Service struct {
	engine  *resource.Engine
	catalog loader.Catalog
	jobs    JobLister
	logger  *zap.Logger
}

// NewService creates a diagnostics service. catalog and jobs may be nil.
func NewService(engine *resource.Engine, catalog loader.Catalog, jobs JobLister, logger *zap.Logger) *Service {
	return &Service{engine: engine, catalog: catalog, jobs: jobs, logger: logger}
}

// Stats returns table, arena and job counters.
func (s *Service) Stats() StatsReport {
	report := StatsReport{
		Categories: []string{},
		Table:      s.engine.Table.Statistics(),
		Arenas:     s.engine.Factory.ArenaStats(),
	}
	for _, c := range s.engine.Factory.Categories() {
		report.Categories = append(report.Categories, c.String())
	}
	if s.jobs != nil {
		report.Jobs = s.jobs.Jobs()
	}
	return report
}

// Snapshot lists the indexed entries. A non-empty category keeps only that
// category; a positive limit caps the number of entries.
func (s *Service) Snapshot(category string, limit int) ([]resource.EntryInfo, error) {
	entries := s.engine.Table.Snapshot()
	if category != "" {
		c, err := resource.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.Category == c.String() {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []resource.EntryInfo{}
	}
	return entries, nil
}

// Leaks runs the leak heuristic.
func (s *Service) Leaks() resource.LeakReport {
	return s.engine.Table.DetectLeaks()
}

// Cleanup evicts recycled entries. Unless force is set, calls closer than
// the configured cleanup interval are throttled and return 0.
func (s *Service) Cleanup(force bool) int {
	if force {
		return s.engine.Table.ForceCleanup()
	}
	return s.engine.Table.CleanupRecycledEntries()
}

// Preload loads the requested resources in one session and releases the
// session references afterwards. Malformed keys fail the whole request
// before anything is loaded; load failures are reported per resource.
func (s *Service) Preload(ctx context.Context, req PreloadRequest) (PreloadResult, error) {
	if req.empty() {
		return PreloadResult{}, ErrEmptyRequest
	}
	keys := make([]resource.Key, 0, len(req.Keys))
	for _, raw := range req.Keys {
		key, err := resource.ParseKey(raw)
		if err != nil {
			return PreloadResult{}, err
		}
		keys = append(keys, key)
	}

	var opts []loader.Option
	if s.catalog != nil {
		opts = append(opts, loader.WithCatalog(s.catalog))
	}
	l := loader.New(s.engine, s.logger, opts...)
	defer l.ReleaseAll(!req.Unload)

	var errs error
	for _, key := range keys {
		errs = multierr.Append(errs, l.Add(ctx, key, nil, true))
	}
	for _, p := range req.Paths {
		errs = multierr.Append(errs, l.AddPath(ctx, p, nil, true))
	}
	for _, id := range req.ContentIDs {
		if err := l.AddContentID(ctx, id, nil, true); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("content %s: %w", id, err))
		}
	}
	for _, c := range req.Containers {
		errs = multierr.Append(errs, l.AddContainer(ctx, c, nil, true))
	}
	errs = multierr.Append(errs, l.LoadAllSync(ctx))

	result := PreloadResult{Progress: l.Progress(), Ready: []string{}}
	for _, key := range l.Tracked() {
		result.Tracked++
		if src, ok := s.engine.Get(key); ok && src.IsReady() {
			result.Ready = append(result.Ready, key.ID().String())
		}
	}
	for _, err := range multierr.Errors(errs) {
		result.Errors = append(result.Errors, err.Error())
	}
	s.logger.Info("Preload finished",
		zap.Int("tracked", result.Tracked),
		zap.Int("ready", len(result.Ready)),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}
