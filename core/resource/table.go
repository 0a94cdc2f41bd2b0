package resource

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// partition is one independently locked section of the table.
type partition struct {
	mu      sync.Mutex
	entries map[ID]Ref
	refs    map[ID]int
}

// Table is the reference counted registry of sources.
//
// All mutation goes through its methods. Each call locks at most one
// partition, except Statistics which locks all of them in Partition order.
type Table struct {
	parts [PartitionCount]*partition

	cleanup  *rate.Limiter
	maxItems int
	maxRatio float64

	logger *zap.Logger
}

// NewTable creates an empty table.
func NewTable(cfg Config, logger *zap.Logger) *Table {
	t := &Table{
		cleanup:  rate.NewLimiter(rate.Every(cfg.CleanupInterval()), 1),
		maxItems: cfg.LeakMaxEntries,
		maxRatio: cfg.LeakMaxRecycledRatio,
		logger:   logger,
	}
	for i := range t.parts {
		t.parts[i] = &partition{
			entries: make(map[ID]Ref),
			refs:    make(map[ID]int),
		}
	}
	return t
}

func (t *Table) part(key Key) *partition {
	return t.parts[key.Category.Partition()]
}

// Get returns the live source registered for key. A recycled entry found on
// the way is purged and reported as absent.
func (t *Table) Get(key Key) (*Source, bool) {
	p := t.part(key)
	id := key.ID()

	p.mu.Lock()
	defer p.mu.Unlock()

	ref, ok := p.entries[id]
	if !ok {
		return nil, false
	}
	src, live := ref.Source()
	if !live {
		delete(p.entries, id)
		delete(p.refs, id)
		return nil, false
	}
	return src, true
}

// TryRegister indexes src under key. A recycled occupant is replaced and its
// count reset; a live occupant other than src makes the call fail.
func (t *Table) TryRegister(key Key, src *Source) bool {
	if src == nil || key.Name == "" {
		t.logger.Warn("Refusing to register invalid resource", zap.Stringer("key", key), zap.Bool("nil_source", src == nil))
		return false
	}
	id := key.ID()
	if got := src.Key(); !got.Same(key) {
		t.logger.Warn("Refusing to register source under foreign key",
			zap.Stringer("key", id), zap.Stringer("source", got.ID()))
		return false
	}

	p := t.part(key)
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.entries[id]; ok {
		if cur, live := existing.Source(); live {
			if cur == src {
				return true
			}
			t.logger.Error("Duplicate resource key, registration rejected", zap.Stringer("key", id))
			return false
		}
		delete(p.refs, id)
	}
	if !src.Ref().Valid() {
		t.logger.Warn("Refusing to register recycled source", zap.Stringer("key", id))
		return false
	}
	p.entries[id] = src.Ref()
	src.attach(t)
	return true
}

// Acquire increments the reference count of a registered key and returns
// the new count. Unregistered or recycled entries yield 0.
func (t *Table) Acquire(key Key) int {
	p := t.part(key)
	id := key.ID()

	p.mu.Lock()
	ref, ok := p.entries[id]
	if !ok {
		p.mu.Unlock()
		t.logger.Warn("Acquire on unregistered resource", zap.Stringer("key", id))
		return 0
	}
	if !ref.Valid() {
		delete(p.entries, id)
		delete(p.refs, id)
		p.mu.Unlock()
		t.logger.Warn("Acquire on recycled resource, entry purged", zap.Stringer("key", id))
		return 0
	}
	count := p.refs[id]
	if count < 0 {
		count = 0
	}
	count++
	p.refs[id] = count
	p.mu.Unlock()
	return count
}

// Release decrements the reference count of key and returns the new count.
// When the count reaches zero and unloadWhenZero is set the entry is removed,
// its resource freed and the source recycled; otherwise the entry stays
// indexed for cheap re-acquisition. Releasing an unreferenced key is a logged
// no-op.
func (t *Table) Release(key Key, unloadWhenZero bool) int {
	p := t.part(key)
	id := key.ID()

	p.mu.Lock()
	count, counted := p.refs[id]
	ref, indexed := p.entries[id]
	if !counted || count <= 0 {
		p.mu.Unlock()
		t.logger.Warn("Release on unreferenced resource", zap.Stringer("key", id), zap.Bool("indexed", indexed))
		return 0
	}

	count--
	if count > 0 {
		p.refs[id] = count
		p.mu.Unlock()
		return count
	}

	delete(p.refs, id)
	if !unloadWhenZero || !indexed {
		p.mu.Unlock()
		return 0
	}
	delete(p.entries, id)
	p.mu.Unlock()

	if src, live := ref.Source(); live {
		t.unload(src)
	}
	return 0
}

// Remove drops key from the index regardless of its count. With
// releaseResource the source is also freed and recycled.
func (t *Table) Remove(key Key, releaseResource bool) bool {
	p := t.part(key)
	id := key.ID()

	p.mu.Lock()
	ref, ok := p.entries[id]
	if !ok {
		p.mu.Unlock()
		return false
	}
	delete(p.entries, id)
	delete(p.refs, id)
	p.mu.Unlock()

	if src, live := ref.Source(); live && releaseResource {
		t.unload(src)
	}
	return true
}

// RefCount returns the current reference count of key.
func (t *Table) RefCount(key Key) int {
	p := t.part(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refs[key.ID()]
}

// holds reports whether src is the indexed source of its key with a
// positive count.
func (t *Table) holds(src *Source) bool {
	key := src.Key()
	p := t.part(key)
	id := key.ID()

	p.mu.Lock()
	defer p.mu.Unlock()
	ref, ok := p.entries[id]
	return ok && ref.src == src && p.refs[id] > 0
}

// unload frees an unindexed source and recycles it. A source still loading
// is unloaded once its load settles.
func (t *Table) unload(src *Source) {
	if src.ReleaseResource() {
		src.TryAutoPushedToPool()
		return
	}
	t.logger.Debug("Deferring unload until load settles", zap.Stringer("key", src.Key()))
	src.whenSettled(func(s *Source, _ bool) {
		if s.ReleaseResource() {
			s.TryAutoPushedToPool()
		}
	})
}
