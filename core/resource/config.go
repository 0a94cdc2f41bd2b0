package resource

import "time"

// Config holds the engine settings.
type Config struct {
	// Workers is the number of goroutines running async backend reads.
	Workers int `mapstructure:"workers" default:"4"`
	// QueueSize is the buffered capacity of the async job queue.
	QueueSize int `mapstructure:"queue_size" default:"64"`
	// UnloadWhenZero is the default eviction policy of loaders releasing their references.
	UnloadWhenZero bool `mapstructure:"unload_when_zero" default:"true"`
	// CleanupIntervalSeconds is the minimum spacing of recycled entry sweeps.
	CleanupIntervalSeconds int `mapstructure:"cleanup_interval_seconds" default:"30"`
	// LeakCheckIntervalSeconds is the period of the leak detection job.
	LeakCheckIntervalSeconds int `mapstructure:"leak_check_interval_seconds" default:"300"`
	// LeakMaxEntries is the total entry count above which a leak is reported.
	LeakMaxEntries int `mapstructure:"leak_max_entries" default:"10000"`
	// LeakMaxRecycledRatio is the recycled entry ratio above which a leak is reported.
	LeakMaxRecycledRatio float64 `mapstructure:"leak_max_recycled_ratio" default:"0.25"`
}

// CleanupInterval returns the sweep spacing, defaulting to 30s.
func (c Config) CleanupInterval() time.Duration {
	if c.CleanupIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

// LeakCheckInterval returns the leak detection period, defaulting to 5m.
func (c Config) LeakCheckInterval() time.Duration {
	if c.LeakCheckIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.LeakCheckIntervalSeconds) * time.Second
}
