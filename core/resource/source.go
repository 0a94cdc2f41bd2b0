package resource

import (
	"context"
	"fmt"
	"sync"

	"asset-cache/core/utils"

	"go.uber.org/zap"
)

// Callback is invoked when a load settles.
type Callback func(src *Source, ok bool)

// ListenerID identifies a registered completion listener.
type ListenerID uint64

type listener struct {
	id ListenerID
	fn Callback
}

// Source is the cache entry of one logical resource.
type Source struct {
	mu sync.Mutex

	key      Key
	state    State
	handle   Handle
	progress float64

	listeners    []listener
	nextListener ListenerID

	deps         []Key
	depsResolved bool

	backend Backend
	owner   holder
	logger  *zap.Logger

	arena    *Arena
	gen      uint32
	recycled bool
}

// init prepares a fresh or recycled source for key.
func (s *Source) init(key Key, backend Backend, logger *zap.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.key = key
	s.state = StateWaiting
	s.handle = nil
	s.progress = 0
	s.listeners = nil
	s.deps = nil
	s.depsResolved = false
	s.backend = backend
	s.owner = nil
	s.logger = logger
	s.recycled = false
}

// Key returns the key the source was created for.
func (s *Source) Key() Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Name returns the resource name.
func (s *Source) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key.Name
}

// State returns the current loading state.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsReady reports whether the source is Ready.
func (s *Source) IsReady() bool {
	return s.State() == StateReady
}

// Progress returns the load progress in [0,1].
func (s *Source) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReady {
		return 1
	}
	return s.progress
}

// Handle returns the loaded asset, nil unless Ready.
func (s *Source) Handle() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil
	}
	return s.handle
}

// IsHeld reports whether the owning table holds a positive reference count
// for this source.
func (s *Source) IsHeld() bool {
	s.mu.Lock()
	owner := s.owner
	s.mu.Unlock()
	if owner == nil {
		return false
	}
	return owner.holds(s)
}

// isRecycled reports whether the source was handed back to its arena.
func (s *Source) isRecycled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recycled
}

// Ref returns a generation tagged reference to the source.
func (s *Source) Ref() Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ref{src: s, gen: s.gen}
}

func (s *Source) attach(owner holder) {
	s.mu.Lock()
	s.owner = owner
	s.mu.Unlock()
}

// SubmitOnLoadOK registers fn to run when the current or next load settles.
// If the source is already Ready fn runs synchronously and the returned id
// is zero.
func (s *Source) SubmitOnLoadOK(fn Callback) ListenerID {
	if fn == nil {
		return 0
	}
	s.mu.Lock()
	if s.state == StateReady {
		s.mu.Unlock()
		fn(s, true)
		return 0
	}
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()
	return id
}

// WithdrawOnLoadOK removes a listener registered with SubmitOnLoadOK.
func (s *Source) WithdrawOnLoadOK(id ListenerID) bool {
	if id == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// whenSettled runs fn once the source is no longer Loading.
func (s *Source) whenSettled(fn Callback) {
	s.mu.Lock()
	if s.state != StateLoading {
		ok := s.state == StateReady
		s.mu.Unlock()
		fn(s, ok)
		return
	}
	s.nextListener++
	s.listeners = append(s.listeners, listener{id: s.nextListener, fn: fn})
	s.mu.Unlock()
}

// Dependencies returns the keys this source depends on. The backend is asked
// once; the answer is cached until the source is recycled.
func (s *Source) Dependencies(ctx context.Context) ([]Key, error) {
	s.mu.Lock()
	if s.depsResolved {
		deps := s.deps
		s.mu.Unlock()
		return deps, nil
	}
	backend, key := s.backend, s.key
	s.mu.Unlock()

	if backend == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecycled, key)
	}

	deps, err := backend.Dependencies(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolve dependencies of %s: %w", key, err)
	}

	s.mu.Lock()
	s.deps = deps
	s.depsResolved = true
	s.mu.Unlock()
	return deps, nil
}

// IsDependencyLoadFinished reports whether every dependency is registered in
// lookup and Ready. Unregistered dependencies count as not finished.
func (s *Source) IsDependencyLoadFinished(ctx context.Context, lookup Lookup) bool {
	deps, err := s.Dependencies(ctx)
	if err != nil {
		return false
	}
	for _, dep := range deps {
		src, ok := lookup.Get(dep)
		if !ok || src.State() != StateReady {
			return false
		}
	}
	return true
}

// ReleaseResource frees the loaded handle. It refuses while Loading, is a
// no-op on a Waiting source and returns a Ready source to Waiting.
func (s *Source) ReleaseResource() bool {
	s.mu.Lock()
	switch s.state {
	case StateLoading:
		s.mu.Unlock()
		return false
	case StateWaiting:
		s.mu.Unlock()
		return true
	}

	h, backend, key, logger := s.handle, s.backend, s.key, s.logger
	s.handle = nil
	s.listeners = nil
	s.state = StateWaiting
	s.progress = 0
	s.mu.Unlock()

	if backend != nil && h != nil {
		if err := backend.Free(h); err != nil {
			logger.Warn("Failed to free resource handle", zap.Stringer("key", key), zap.Error(err))
		}
	}
	return true
}

// TryAutoPushedToPool hands the source back to its arena. It only succeeds
// for a Waiting source without handle that no table holds.
func (s *Source) TryAutoPushedToPool() bool {
	s.mu.Lock()
	if s.recycled || s.state != StateWaiting || s.handle != nil || s.arena == nil {
		s.mu.Unlock()
		return false
	}
	arena := s.arena
	s.mu.Unlock()

	if s.IsHeld() {
		return false
	}
	return arena.put(s)
}

func (s *Source) setProgress(fraction float64) {
	s.mu.Lock()
	if s.state == StateLoading {
		s.progress = utils.Clamp01(fraction)
	}
	s.mu.Unlock()
}

// settle finishes a load. A nil err makes the source Ready with h, any error
// returns it to Waiting. Listeners are drained and invoked in both cases.
func (s *Source) settle(h Handle, err error) {
	s.mu.Lock()
	if s.recycled {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.state = StateWaiting
		s.handle = nil
		s.progress = 0
	} else {
		s.state = StateReady
		s.handle = h
		s.progress = 1
	}
	pending := s.listeners
	s.listeners = nil
	key, logger := s.key, s.logger
	s.mu.Unlock()

	if err != nil {
		logger.Warn("Resource load failed", zap.Stringer("key", key), zap.Error(err))
	} else {
		logger.Debug("Resource ready", zap.Stringer("key", key))
	}

	ok := err == nil
	for _, l := range pending {
		l.fn(s, ok)
	}
}
