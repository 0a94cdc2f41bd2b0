package resource

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

// fakeBackend serves in-memory assets. deps maps a resource name to the
// names it depends on within the same category.
type fakeBackend struct {
	mu      sync.Mutex
	deps    map[string][]string
	fail    map[string]error
	gate    map[string]chan struct{}
	order   []string
	freed   []string
	seenDep map[string]bool
}

type fakeAsset struct {
	name string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		deps:    make(map[string][]string),
		fail:    make(map[string]error),
		gate:    make(map[string]chan struct{}),
		seenDep: make(map[string]bool),
	}
}

func (b *fakeBackend) Load(ctx context.Context, key Key, lookup Lookup, progress ProgressFunc) (Handle, error) {
	b.mu.Lock()
	gate := b.gate[key.Name]
	err := b.fail[key.Name]
	deps := b.deps[key.Name]
	b.mu.Unlock()

	progress(0.5)
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	allReady := true
	for _, d := range deps {
		src, ok := lookup.Get(NewKey(key.Category, key.Container, d))
		if !ok || !src.IsReady() {
			allReady = false
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.seenDep[key.Name] = allReady
	if err != nil {
		return nil, err
	}
	b.order = append(b.order, key.Name)
	return &fakeAsset{name: key.Name}, nil
}

func (b *fakeBackend) Dependencies(_ context.Context, key Key) ([]Key, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []Key
	for _, d := range b.deps[key.Name] {
		keys = append(keys, NewKey(key.Category, key.Container, d))
	}
	return keys, nil
}

func (b *fakeBackend) Free(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.freed = append(b.freed, h.(*fakeAsset).name)
	return nil
}

func (b *fakeBackend) loaded() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}

func (b *fakeBackend) freedNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.freed...)
}

func newTestEngine(logger *zap.Logger) (*Engine, *fakeBackend) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := NewEngine(Config{CleanupIntervalSeconds: 3600, LeakMaxEntries: 3, LeakMaxRecycledRatio: 0.5}, logger, nil)
	b := newFakeBackend()
	if err := e.Factory.Register(CategoryPackagedAsset, b); err != nil {
		panic(err)
	}
	return e, b
}

func assetKey(name string) Key {
	return NewKey(CategoryPackagedAsset, "ui", name)
}
