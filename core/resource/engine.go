package resource

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Engine bundles the table, the factory and the executor of one cache.
// Independent engines share no state.
type Engine struct {
	Table   *Table
	Factory *Factory

	exec   Executor
	sf     singleflight.Group
	config Config
	logger *zap.Logger
}

// NewEngine creates an engine. A nil exec runs every async read on its own
// goroutine.
func NewEngine(cfg Config, logger *zap.Logger, exec Executor) *Engine {
	return &Engine{
		Table:   NewTable(cfg, logger),
		Factory: NewFactory(logger),
		exec:    exec,
		config:  cfg,
		logger:  logger,
	}
}

// Config returns the engine settings.
func (e *Engine) Config() Config {
	return e.config
}

// Logger returns the engine logger.
func (e *Engine) Logger() *zap.Logger {
	return e.logger
}

// Get returns the live source registered for key.
func (e *Engine) Get(key Key) (*Source, bool) {
	return e.Table.Get(key)
}

// Submit runs job on the executor.
func (e *Engine) Submit(job func()) {
	if e.exec == nil {
		go job()
		return
	}
	e.exec.Submit(job)
}

// Resolve returns the source registered for key, creating and registering a
// new one on first use. Concurrent first uses of the same key share one
// creation.
func (e *Engine) Resolve(ctx context.Context, key Key) (*Source, error) {
	if key.Name == "" {
		return nil, ErrEmptyName
	}
	if src, ok := e.Table.Get(key); ok {
		return src, nil
	}

	v, err, _ := e.sf.Do(singleflightKey(key.ID()), func() (any, error) {
		if src, ok := e.Table.Get(key); ok {
			return src, nil
		}
		src, err := e.Factory.CreateResourceSource(key)
		if err != nil {
			return nil, err
		}
		if !e.Table.TryRegister(key, src) {
			src.TryAutoPushedToPool()
			if existing, ok := e.Table.Get(key); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("register %s: %w", key.ID(), ErrConflict)
		}
		e.logger.Debug("Resource source created", zap.Stringer("key", key))
		return src, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Source), nil
}

// Acquire increments the table reference count of key.
func (e *Engine) Acquire(key Key) int {
	return e.Table.Acquire(key)
}

// Release decrements the table reference count of key.
func (e *Engine) Release(key Key, unloadWhenZero bool) int {
	return e.Table.Release(key, unloadWhenZero)
}

func singleflightKey(id ID) string {
	return fmt.Sprintf("%d\x00%s\x00%s", id.Category, id.Container, id.Name)
}
