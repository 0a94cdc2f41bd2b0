package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Index holds both sides of a reconciliation.
type Index struct {
	manifests *manifestIndex
	archives  map[string]int64

	// Built is the timestamp when this index was built.
	Built time.Time
}

// BuildIndex loads the manifest and storage sides concurrently.
func (r *Reconciler) BuildIndex(ctx context.Context) (*Index, error) {
	var (
		manifests  *manifestIndex
		archives   map[string]int64
		mErr, sErr error
		wg         sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		manifests, mErr = loadManifestIndex(ctx, r.manifests)
	}()
	go func() {
		defer wg.Done()
		archives, sErr = loadStorageSet(ctx, r.client, r.bucket, r.prefix)
	}()
	wg.Wait()

	if mErr != nil {
		return nil, mErr
	}
	if sErr != nil {
		return nil, sErr
	}
	return &Index{manifests: manifests, archives: archives, Built: time.Now()}, nil
}

// indexCache keeps the last index for ttl.
type indexCache struct {
	mu    sync.RWMutex
	index *Index
	ttl   time.Duration
	sf    singleflight.Group
}

func (c *indexCache) fresh() (*Index, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index == nil || c.ttl <= 0 || time.Since(c.index.Built) > c.ttl {
		return nil, false
	}
	return c.index, true
}

// Index returns the cached index, building a new one when it is missing or
// expired. Concurrent rebuilds share one build.
func (r *Reconciler) Index(ctx context.Context) (*Index, error) {
	if idx, ok := r.cache.fresh(); ok {
		return idx, nil
	}
	v, err, _ := r.cache.sf.Do("index", func() (any, error) {
		if idx, ok := r.cache.fresh(); ok {
			return idx, nil
		}
		idx, err := r.BuildIndex(ctx)
		if err != nil {
			return nil, err
		}
		r.cache.mu.Lock()
		r.cache.index = idx
		r.cache.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Invalidate drops the cached index.
func (r *Reconciler) Invalidate() {
	r.cache.mu.Lock()
	r.cache.index = nil
	r.cache.mu.Unlock()
}
