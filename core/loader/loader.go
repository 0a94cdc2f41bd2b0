package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"asset-cache/core/resource"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	// ErrNoCatalog is returned by AddContentID when the loader has no catalog.
	ErrNoCatalog = errors.New("loader has no content catalog")
)

// Engine is the cache a Loader works against.
type Engine interface {
	resource.Env
	Acquire(key resource.Key) int
	Release(key resource.Key, unloadWhenZero bool) int
}

// Catalog resolves content ids to keys.
type Catalog interface {
	LookupContentID(ctx context.Context, contentID string) (resource.Key, error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithCatalog enables AddContentID.
func WithCatalog(c Catalog) Option {
	return func(l *Loader) { l.catalog = c }
}

type tracked struct {
	key resource.Key
	ref resource.Ref
}

// Loader is a per-caller load session. It tracks the sources one caller
// asked for, drives their asynchronous loads tick by tick in dependency
// order and reports aggregate progress. It is a view on the cache: each
// tracked source is acquired once and only ReleaseAll gives the references
// back.
type Loader struct {
	engine  Engine
	catalog Catalog
	logger  *zap.Logger

	mu           sync.Mutex
	tracked      []tracked
	index        map[resource.ID]int
	pending      []resource.Ref
	pendingCount int
	onAll        func()
}

// New creates an empty session on engine.
func New(engine Engine, logger *zap.Logger, opts ...Option) *Loader {
	l := &Loader{
		engine: engine,
		logger: logger,
		index:  make(map[resource.ID]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add tracks key in this session. Its dependencies are tracked first. A key
// already tracked only gets onDone attached. appendAtEnd=false puts the work
// in front of the queue.
func (l *Loader) Add(ctx context.Context, key resource.Key, onDone resource.Callback, appendAtEnd bool) error {
	return l.add(ctx, key, onDone, appendAtEnd, make(map[resource.ID]struct{}))
}

// AddPath tracks the raw file at path.
func (l *Loader) AddPath(ctx context.Context, path string, onDone resource.Callback, appendAtEnd bool) error {
	key := resource.Key{
		Category:  resource.CategoryRawFile,
		Name:      filepath.ToSlash(filepath.Clean(path)),
		LocalPath: path,
	}
	return l.Add(ctx, key, onDone, appendAtEnd)
}

// AddContentID tracks the resource the catalog maps contentID to.
func (l *Loader) AddContentID(ctx context.Context, contentID string, onDone resource.Callback, appendAtEnd bool) error {
	if l.catalog == nil {
		return ErrNoCatalog
	}
	key, err := l.catalog.LookupContentID(ctx, contentID)
	if err != nil {
		return fmt.Errorf("lookup content id %s: %w", contentID, err)
	}
	key.ContentID = contentID
	return l.Add(ctx, key, onDone, appendAtEnd)
}

// AddContainer tracks the package with the given name.
func (l *Loader) AddContainer(ctx context.Context, name string, onDone resource.Callback, appendAtEnd bool) error {
	return l.Add(ctx, resource.PackageKey(name), onDone, appendAtEnd)
}

func (l *Loader) add(ctx context.Context, key resource.Key, onDone resource.Callback, appendAtEnd bool, path map[resource.ID]struct{}) error {
	if key.Name == "" {
		return resource.ErrEmptyName
	}
	id := key.ID()
	if _, seen := path[id]; seen {
		return fmt.Errorf("%w: %s", resource.ErrDependencyCycle, id)
	}
	if l.attach(id, onDone) {
		return nil
	}

	src, err := l.engine.Resolve(ctx, key)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", id, err)
	}
	deps, err := src.Dependencies(ctx)
	if err != nil {
		return err
	}

	path[id] = struct{}{}
	for _, dep := range deps {
		if err := l.add(ctx, dep, nil, appendAtEnd, path); err != nil {
			delete(path, id)
			return fmt.Errorf("add dependency of %s: %w", id, err)
		}
	}
	delete(path, id)

	l.mu.Lock()
	if _, dup := l.index[id]; dup {
		l.mu.Unlock()
		l.attach(id, onDone)
		return nil
	}
	l.index[id] = len(l.tracked)
	l.tracked = append(l.tracked, tracked{key: key, ref: src.Ref()})
	if src.State() != resource.StateReady {
		if appendAtEnd {
			l.pending = append(l.pending, src.Ref())
		} else {
			l.pending = append([]resource.Ref{src.Ref()}, l.pending...)
		}
		l.pendingCount++
	}
	l.mu.Unlock()

	l.engine.Acquire(key)
	if onDone != nil {
		src.SubmitOnLoadOK(onDone)
	}
	return nil
}

// attach hooks onDone to an already tracked, live source.
func (l *Loader) attach(id resource.ID, onDone resource.Callback) bool {
	l.mu.Lock()
	i, ok := l.index[id]
	if !ok {
		l.mu.Unlock()
		return false
	}
	ref := l.tracked[i].ref
	l.mu.Unlock()

	src, live := ref.Source()
	if !live {
		l.forget(id)
		return false
	}
	if onDone != nil {
		src.SubmitOnLoadOK(onDone)
	}
	return true
}

// forget drops a tracked entry whose source was recycled under us.
func (l *Loader) forget(id resource.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return
	}
	l.tracked = append(l.tracked[:i], l.tracked[i+1:]...)
	delete(l.index, id)
	for j := i; j < len(l.tracked); j++ {
		l.index[l.tracked[j].key.ID()] = j
	}
	l.logger.Warn("Tracked resource was recycled", zap.Stringer("key", id))
}

// LoadAllAsync runs one scheduling tick. Queued sources whose dependencies
// are Ready start loading; each completion triggers another tick. onAll, when
// not nil, fires exactly once when no work is left. Hooks passed while an
// earlier one is still pending run after it, in call order.
func (l *Loader) LoadAllAsync(ctx context.Context, onAll func()) {
	if onAll != nil {
		l.mu.Lock()
		if prev := l.onAll; prev != nil {
			l.onAll = func() {
				prev()
				onAll()
			}
		} else {
			l.onAll = onAll
		}
		l.mu.Unlock()
	}
	l.tick(ctx)
}

func (l *Loader) tick(ctx context.Context) {
	l.mu.Lock()
	var ready []*resource.Source
	kept := make([]resource.Ref, 0, len(l.pending))
	for _, ref := range l.pending {
		src, live := ref.Source()
		if !live {
			l.pendingCount--
			continue
		}
		if src.IsDependencyLoadFinished(ctx, l.engine) {
			ready = append(ready, src)
			continue
		}
		kept = append(kept, ref)
	}
	l.pending = kept
	if l.pendingCount < 0 {
		l.pendingCount = 0
	}
	fire := l.takeOnAll()
	l.mu.Unlock()

	for _, src := range ready {
		src.LoadAsync(ctx, l.engine, func(s *resource.Source, ok bool) {
			l.complete(ctx, s, ok)
		})
	}
	if fire != nil {
		fire()
	}
}

func (l *Loader) complete(ctx context.Context, src *resource.Source, ok bool) {
	if !ok {
		l.logger.Warn("Resource failed to load", zap.Stringer("key", src.Key()))
	}
	l.mu.Lock()
	if l.pendingCount > 0 {
		l.pendingCount--
	}
	l.mu.Unlock()
	l.tick(ctx)
}

// takeOnAll returns and clears the completion hook once no work is pending.
// l.mu must be held.
func (l *Loader) takeOnAll() func() {
	if l.pendingCount != 0 || l.onAll == nil {
		return nil
	}
	fn := l.onAll
	l.onAll = nil
	return fn
}

// LoadAllSync drains the queue in FIFO order, loading each source and its
// dependencies synchronously. Failures are collected and returned together.
func (l *Loader) LoadAllSync(ctx context.Context) error {
	l.mu.Lock()
	queue := l.pending
	l.pending = nil
	l.mu.Unlock()

	var errs error
	for _, ref := range queue {
		if src, live := ref.Source(); live {
			if err := src.LoadSync(ctx, l.engine); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		l.mu.Lock()
		if l.pendingCount > 0 {
			l.pendingCount--
		}
		l.mu.Unlock()
	}

	l.mu.Lock()
	fire := l.takeOnAll()
	l.mu.Unlock()
	if fire != nil {
		fire()
	}
	return errs
}

// Progress returns the weighted completion of the session: Ready sources
// count as one, others by their own progress. It is exactly 1 when nothing is
// pending.
func (l *Loader) Progress() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pendingCount == 0 || len(l.tracked) == 0 {
		return 1
	}
	var sum float64
	for _, t := range l.tracked {
		src, live := t.ref.Source()
		if !live {
			continue
		}
		sum += src.Progress()
	}
	return sum / float64(len(l.tracked))
}

// Pending returns the number of queued or in-flight loads.
func (l *Loader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pendingCount
}

// Tracked returns the keys tracked by this session in insertion order.
func (l *Loader) Tracked() []resource.Key {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]resource.Key, len(l.tracked))
	for i, t := range l.tracked {
		keys[i] = t.key
	}
	return keys
}

// ReleaseAll gives back the table reference of every tracked source and
// clears the session. keepPooled keeps entries that drop to zero indexed and
// loaded (warm eviction) instead of unloading them.
func (l *Loader) ReleaseAll(keepPooled bool) {
	for _, t := range l.reset() {
		l.engine.Release(t.key, !keepPooled)
	}
}

// Detach clears the session without touching reference counts. The caller
// takes over the references the session acquired.
func (l *Loader) Detach() {
	l.reset()
}

func (l *Loader) reset() []tracked {
	l.mu.Lock()
	defer l.mu.Unlock()

	all := l.tracked
	l.tracked = nil
	l.index = make(map[resource.ID]int)
	l.pending = nil
	l.pendingCount = 0
	l.onAll = nil
	return all
}
