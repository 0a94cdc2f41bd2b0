package sweeper

import (
	"fmt"
	"sync"
	"time"

	"asset-cache/core/resource"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	JobCleanup   = "cache-cleanup"
	JobLeakCheck = "cache-leak-check"
)

// Table is the part of the resource table the sweeper maintains. The
// scheduler spaces the runs, so the sweeper uses the unthrottled cleanup.
type Table interface {
	ForceCleanup() int
	DetectLeaks() resource.LeakReport
}

// JobInfo describes a scheduled job.
type JobInfo struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	LastRun  time.Time     `json:"last_run"`
	NextRun  time.Time     `json:"next_run"`
}

// Sweeper periodically evicts recycled table entries and checks for leaks.
type Sweeper struct {
	mu        sync.Mutex
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
	intervals map[string]time.Duration
	table     Table
	logger    *zap.Logger
}

// New creates a sweeper for table with the cleanup and leak check intervals
// of cfg. Jobs run once Start is called.
func New(table Table, cfg resource.Config, logger *zap.Logger) (*Sweeper, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	sw := &Sweeper{
		scheduler: s,
		jobs:      make(map[string]gocron.Job),
		intervals: make(map[string]time.Duration),
		table:     table,
		logger:    logger,
	}
	if err := sw.add(JobCleanup, cfg.CleanupInterval(), sw.cleanup); err != nil {
		return nil, err
	}
	if err := sw.add(JobLeakCheck, cfg.LeakCheckInterval(), sw.leakCheck); err != nil {
		return nil, err
	}
	return sw, nil
}

func (s *Sweeper) add(name string, every time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create job %s: %w", name, err)
	}
	s.jobs[name] = j
	s.intervals[name] = every
	return nil
}

func (s *Sweeper) cleanup() {
	if n := s.table.ForceCleanup(); n > 0 {
		s.logger.Debug("Sweep removed recycled entries", zap.Int("count", n))
	}
}

func (s *Sweeper) leakCheck() {
	// DetectLeaks logs suspicious reports itself.
	s.table.DetectLeaks()
}

// Jobs lists the scheduled jobs.
func (s *Sweeper) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, name := range []string{JobCleanup, JobLeakCheck} {
		j, ok := s.jobs[name]
		if !ok {
			continue
		}
		info := JobInfo{Name: name, Interval: s.intervals[name]}
		if lr, err := j.LastRun(); err == nil {
			info.LastRun = lr
		}
		if nr, err := j.NextRun(); err == nil {
			info.NextRun = nr
		}
		infos = append(infos, info)
	}
	return infos
}

// Start begins executing the jobs.
func (s *Sweeper) Start() {
	s.scheduler.Start()
	s.logger.Info("Cache sweeper started", zap.Int("jobs", len(s.jobs)))
}

// Stop shuts the scheduler down and waits for running jobs to finish.
func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}
