package resource

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// LoadSync loads the dependency closure depth first and then the resource
// itself, blocking the caller. A source another goroutine is already loading
// is waited for.
func (s *Source) LoadSync(ctx context.Context, env Env) error {
	return s.loadSync(ctx, env, make(map[ID]struct{}))
}

func (s *Source) loadSync(ctx context.Context, env Env, path map[ID]struct{}) error {
	s.mu.Lock()
	key := s.key
	id := key.ID()
	if _, seen := path[id]; seen {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDependencyCycle, id)
	}
	switch {
	case s.recycled:
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRecycled, id)
	case key.Name == "":
		s.mu.Unlock()
		return ErrEmptyName
	case s.state == StateReady:
		s.mu.Unlock()
		return nil
	case s.state == StateLoading:
		s.mu.Unlock()
		return s.wait(ctx)
	}
	s.state = StateLoading
	s.progress = 0
	backend := s.backend
	s.mu.Unlock()

	path[id] = struct{}{}
	defer delete(path, id)

	deps, err := s.Dependencies(ctx)
	if err != nil {
		s.settle(nil, err)
		return err
	}
	for _, depKey := range deps {
		dep, err := env.Resolve(ctx, depKey)
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrDependencyFailed, depKey.ID(), err)
			s.settle(nil, err)
			return err
		}
		if err := dep.loadSync(ctx, env, path); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrDependencyFailed, depKey.ID(), err)
			s.settle(nil, err)
			return err
		}
	}

	h, err := backend.Load(ctx, key, env, s.setProgress)
	if err != nil {
		err = fmt.Errorf("load %s: %w", id, err)
	}
	s.settle(h, err)
	return err
}

// wait blocks until an in-flight load settles.
func (s *Source) wait(ctx context.Context) error {
	done := make(chan bool, 1)

	s.mu.Lock()
	key := s.key
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return nil
	case StateWaiting:
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrLoadFailed, key.ID())
	}
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listener{id: id, fn: func(_ *Source, ok bool) { done <- ok }})
	s.mu.Unlock()

	select {
	case ok := <-done:
		if !ok {
			return fmt.Errorf("%w: %s", ErrLoadFailed, key.ID())
		}
		return nil
	case <-ctx.Done():
		s.WithdrawOnLoadOK(id)
		return ctx.Err()
	}
}

// LoadAsync starts a non-blocking load and returns immediately. Unmet
// dependencies are resolved and loaded first; the backend read runs on the
// env executor. cb, when not nil, is invoked once the load settles (at once
// if the source is already Ready).
func (s *Source) LoadAsync(ctx context.Context, env Env, cb Callback) {
	s.loadAsync(ctx, env, nil, cb)
}

func (s *Source) loadAsync(ctx context.Context, env Env, chain []ID, cb Callback) {
	s.mu.Lock()
	key, logger := s.key, s.logger
	id := key.ID()

	var failure error
	switch {
	case s.recycled:
		failure = fmt.Errorf("%w: %s", ErrRecycled, id)
	case key.Name == "":
		failure = ErrEmptyName
	default:
		for _, c := range chain {
			if c == id {
				failure = fmt.Errorf("%w: %s", ErrDependencyCycle, id)
				break
			}
		}
	}
	if failure != nil {
		s.mu.Unlock()
		if logger != nil {
			logger.Warn("Async load rejected", zap.Stringer("key", id), zap.Error(failure))
		}
		if cb != nil {
			cb(s, false)
		}
		return
	}

	if s.state == StateReady {
		s.mu.Unlock()
		if cb != nil {
			cb(s, true)
		}
		return
	}
	if cb != nil {
		s.nextListener++
		s.listeners = append(s.listeners, listener{id: s.nextListener, fn: cb})
	}
	if s.state == StateLoading {
		s.mu.Unlock()
		return
	}
	s.state = StateLoading
	s.progress = 0
	s.mu.Unlock()

	chain = append(chain[:len(chain):len(chain)], id)
	s.awaitDependencies(ctx, env, chain)
}

// awaitDependencies subscribes to every dependency that is not Ready yet and
// starts the backend read once all of them are.
func (s *Source) awaitDependencies(ctx context.Context, env Env, chain []ID) {
	deps, err := s.Dependencies(ctx)
	if err != nil {
		s.settle(nil, err)
		return
	}

	var pending []*Source
	for _, depKey := range deps {
		dep, err := env.Resolve(ctx, depKey)
		if err != nil {
			s.settle(nil, fmt.Errorf("%w: %s: %v", ErrDependencyFailed, depKey.ID(), err))
			return
		}
		if dep.State() != StateReady {
			pending = append(pending, dep)
		}
	}
	if len(pending) == 0 {
		s.startBackend(ctx, env)
		return
	}

	var remaining atomic.Int32
	var failed atomic.Bool
	remaining.Store(int32(len(pending)))
	for _, dep := range pending {
		dep.loadAsync(ctx, env, chain, func(d *Source, ok bool) {
			if !ok {
				if failed.CompareAndSwap(false, true) {
					s.settle(nil, fmt.Errorf("%w: %s", ErrDependencyFailed, d.Key().ID()))
				}
				return
			}
			if remaining.Add(-1) == 0 && !failed.Load() {
				if s.IsDependencyLoadFinished(ctx, env) {
					s.startBackend(ctx, env)
					return
				}
				// a dependency was released meanwhile
				s.awaitDependencies(ctx, env, chain)
			}
		})
	}
}

func (s *Source) startBackend(ctx context.Context, env Env) {
	s.mu.Lock()
	key, backend := s.key, s.backend
	s.mu.Unlock()

	env.Submit(func() {
		if err := ctx.Err(); err != nil {
			s.settle(nil, err)
			return
		}
		h, err := backend.Load(ctx, key, env, s.setProgress)
		if err != nil {
			err = fmt.Errorf("load %s: %w", key.ID(), err)
		}
		s.settle(h, err)
	})
}
