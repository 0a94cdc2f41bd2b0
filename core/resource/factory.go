package resource

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// kind is the registration of one category.
type kind struct {
	backend Backend
	arena   *Arena
}

// Factory maps categories to the backend and arena that produce their
// sources. New categories are plugged in with Register.
type Factory struct {
	mu     sync.RWMutex
	kinds  map[Category]*kind
	logger *zap.Logger
}

// NewFactory creates an empty factory.
func NewFactory(logger *zap.Logger) *Factory {
	return &Factory{
		kinds:  make(map[Category]*kind),
		logger: logger,
	}
}

// Register binds a backend to a category.
func (f *Factory) Register(category Category, backend Backend) error {
	if backend == nil {
		return fmt.Errorf("register %s: nil backend", category)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.kinds[category]; exists {
		f.logger.Error("Backend already registered, ignoring", zap.Stringer("category", category))
		return fmt.Errorf("%w: %s", ErrCategoryRegistered, category)
	}
	f.kinds[category] = &kind{backend: backend, arena: NewArena(category)}
	f.logger.Debug("Backend registered", zap.Stringer("category", category))
	return nil
}

// Unregister removes a category. It must not be called while sources of
// that category are live.
func (f *Factory) Unregister(category Category) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	k, exists := f.kinds[category]
	if !exists {
		return false
	}
	if live := k.arena.Stats().Live; live > 0 {
		f.logger.Warn("Unregistering category with live sources",
			zap.Stringer("category", category), zap.Int("live", live))
	}
	delete(f.kinds, category)
	return true
}

// Supports reports whether a backend is registered for category.
func (f *Factory) Supports(category Category) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.kinds[category]
	return ok
}

// CreateResourceSource takes a source from the category arena and
// initializes it for key.
func (f *Factory) CreateResourceSource(key Key) (*Source, error) {
	f.mu.RLock()
	k, ok := f.kinds[key.Category]
	f.mu.RUnlock()
	if !ok {
		f.logger.Error("No backend registered for category", zap.Stringer("key", key))
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCategory, key.Category)
	}

	s := k.arena.get()
	s.init(key, k.backend, f.logger)
	return s, nil
}

// ArenaStats returns allocation counters per registered category.
func (f *Factory) ArenaStats() map[string]ArenaStats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	stats := make(map[string]ArenaStats, len(f.kinds))
	for _, k := range f.kinds {
		stats[k.arena.Category().String()] = k.arena.Stats()
	}
	return stats
}

// Categories lists the registered categories in declaration order.
func (f *Factory) Categories() []Category {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []Category
	for _, c := range Categories() {
		if _, ok := f.kinds[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
