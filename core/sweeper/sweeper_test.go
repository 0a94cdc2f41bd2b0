package sweeper

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"asset-cache/core/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTable struct {
	cleanups atomic.Int32
	checks   atomic.Int32
}

func (f *fakeTable) ForceCleanup() int {
	f.cleanups.Add(1)
	return 1
}

func (f *fakeTable) DetectLeaks() resource.LeakReport {
	f.checks.Add(1)
	return resource.LeakReport{}
}

func TestSweeper_RunsJobs(t *testing.T) {
	table := &fakeTable{}
	sw, err := New(table, resource.Config{CleanupIntervalSeconds: 1, LeakCheckIntervalSeconds: 1}, zap.NewNop())
	require.NoError(t, err)

	jobs := sw.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, JobCleanup, jobs[0].Name)
	assert.Equal(t, time.Second, jobs[0].Interval)
	assert.Equal(t, JobLeakCheck, jobs[1].Name)

	sw.Start()
	defer func() { assert.NoError(t, sw.Stop()) }()

	assert.Eventually(t, func() bool {
		return table.cleanups.Load() > 0 && table.checks.Load() > 0
	}, 3*time.Second, 20*time.Millisecond)
}

type stubBackend struct{}

func (stubBackend) Load(context.Context, resource.Key, resource.Lookup, resource.ProgressFunc) (resource.Handle, error) {
	return struct{}{}, nil
}

func (stubBackend) Dependencies(context.Context, resource.Key) ([]resource.Key, error) {
	return nil, nil
}

func (stubBackend) Free(resource.Handle) error { return nil }

// recyclingTable recycles one fresh entry before every cleanup run and
// records how many runs evicted it.
type recyclingTable struct {
	*resource.Table
	engine  *resource.Engine
	runs    atomic.Int32
	evicted atomic.Int32
}

func (r *recyclingTable) ForceCleanup() int {
	n := r.runs.Add(1)
	src, err := r.engine.Resolve(context.Background(), resource.NewKey(resource.CategoryRawFile, "", fmt.Sprintf("f%d", n)))
	if err == nil && src.TryAutoPushedToPool() {
		if removed := r.Table.ForceCleanup(); removed == 1 {
			r.evicted.Add(1)
			return removed
		}
	}
	return 0
}

func TestSweeper_EveryRunEvicts(t *testing.T) {
	cfg := resource.Config{CleanupIntervalSeconds: 1, LeakCheckIntervalSeconds: 3600}
	e := resource.NewEngine(cfg, zap.NewNop(), nil)
	require.NoError(t, e.Factory.Register(resource.CategoryRawFile, stubBackend{}))
	table := &recyclingTable{Table: e.Table, engine: e}

	sw, err := New(table, cfg, zap.NewNop())
	require.NoError(t, err)
	sw.Start()

	require.Eventually(t, func() bool { return table.runs.Load() >= 3 }, 6*time.Second, 50*time.Millisecond)
	require.NoError(t, sw.Stop())

	assert.Equal(t, table.runs.Load(), table.evicted.Load(), "a scheduled run must never be skipped")
	assert.Zero(t, e.Table.Statistics().Entries)
}
