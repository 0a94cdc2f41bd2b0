package loader_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"asset-cache/core/loader"
	"asset-cache/core/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

type memAsset struct{ name string }

// memBackend loads assets from memory. Dependencies are declared by name
// within the same category and container.
type memBackend struct {
	mu       sync.Mutex
	deps     map[string][]string
	fail     map[string]error
	gate     map[string]chan struct{}
	order    []string
	depReady map[string]bool
}

func newMemBackend() *memBackend {
	return &memBackend{
		deps:     make(map[string][]string),
		fail:     make(map[string]error),
		gate:     make(map[string]chan struct{}),
		depReady: make(map[string]bool),
	}
}

func (b *memBackend) Load(ctx context.Context, key resource.Key, lookup resource.Lookup, progress resource.ProgressFunc) (resource.Handle, error) {
	b.mu.Lock()
	gate, err, deps := b.gate[key.Name], b.fail[key.Name], b.deps[key.Name]
	b.mu.Unlock()

	progress(0.5)
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ready := true
	for _, d := range deps {
		src, ok := lookup.Get(resource.NewKey(key.Category, key.Container, d))
		ready = ready && ok && src.IsReady()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.depReady[key.Name] = ready
	if err != nil {
		return nil, err
	}
	b.order = append(b.order, key.Name)
	return &memAsset{name: key.Name}, nil
}

func (b *memBackend) Dependencies(_ context.Context, key resource.Key) ([]resource.Key, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []resource.Key
	for _, d := range b.deps[key.Name] {
		keys = append(keys, resource.NewKey(key.Category, key.Container, d))
	}
	return keys, nil
}

func (b *memBackend) Free(resource.Handle) error { return nil }

func (b *memBackend) loaded() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}

func (b *memBackend) sawReadyDeps(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depReady[name]
}

func newEngine(t *testing.T) (*resource.Engine, *memBackend) {
	t.Helper()
	e := resource.NewEngine(resource.Config{}, zap.NewNop(), nil)
	b := newMemBackend()
	require.NoError(t, e.Factory.Register(resource.CategoryPackagedAsset, b))
	require.NoError(t, e.Factory.Register(resource.CategoryRawFile, b))
	return e, b
}

func asset(name string) resource.Key {
	return resource.NewKey(resource.CategoryPackagedAsset, "ui", name)
}

func TestLoader_LoadAllAsync_DependencyOrder(t *testing.T) {
	e, b := newEngine(t)
	b.deps["Panel"] = []string{"ui_base"}
	ctx := context.Background()

	l := loader.New(e, zap.NewNop())

	panelDone := make(chan bool, 1)
	require.NoError(t, l.Add(ctx, asset("Panel"), func(_ *resource.Source, ok bool) { panelDone <- ok }, true))

	tracked := l.Tracked()
	require.Len(t, tracked, 2)
	assert.Equal(t, "ui_base", tracked[0].Name)
	assert.Equal(t, "Panel", tracked[1].Name)
	assert.Equal(t, 2, l.Pending())

	allDone := make(chan [2]bool, 1)
	l.LoadAllAsync(ctx, func() {
		panel, _ := e.Get(asset("Panel"))
		base, _ := e.Get(asset("ui_base"))
		allDone <- [2]bool{panel.IsReady(), base.IsReady()}
	})

	select {
	case ready := <-allDone:
		assert.Equal(t, [2]bool{true, true}, ready)
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback did not fire")
	}
	assert.True(t, <-panelDone)

	assert.Equal(t, []string{"ui_base", "Panel"}, b.loaded())
	assert.True(t, b.sawReadyDeps("Panel"))
	assert.Equal(t, 1.0, l.Progress())
	assert.Zero(t, l.Pending())
}

func TestLoader_Progress(t *testing.T) {
	e, b := newEngine(t)
	gate := make(chan struct{})
	b.gate["B"] = gate
	ctx := context.Background()

	l := loader.New(e, zap.NewNop())
	assert.Equal(t, 1.0, l.Progress(), "empty session is complete")

	require.NoError(t, l.Add(ctx, asset("A"), nil, true))
	require.NoError(t, l.Add(ctx, asset("B"), nil, true))
	assert.Equal(t, 0.0, l.Progress())

	done := make(chan struct{})
	l.LoadAllAsync(ctx, func() { close(done) })

	a, _ := e.Get(asset("A"))
	bSrc, _ := e.Get(asset("B"))
	require.Eventually(t, func() bool {
		return a.IsReady() && bSrc.Progress() == 0.5
	}, time.Second, 5*time.Millisecond)
	assert.InDelta(t, 0.75, l.Progress(), 1e-9)
	assert.Equal(t, 1, l.Pending())

	close(gate)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loads did not complete")
	}
	assert.Equal(t, 1.0, l.Progress())
}

func TestLoader_LoadAllAsync_ChainsHooks(t *testing.T) {
	e, b := newEngine(t)
	gate := make(chan struct{})
	b.gate["A"] = gate
	ctx := context.Background()

	l := loader.New(e, zap.NewNop())
	require.NoError(t, l.Add(ctx, asset("A"), nil, true))

	var mu sync.Mutex
	var fired []string
	hook := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			fired = append(fired, name)
		}
	}
	l.LoadAllAsync(ctx, hook("first"))
	l.LoadAllAsync(ctx, hook("second"))
	close(gate)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 2
	}, 2*time.Second, 5*time.Millisecond)

	// Later ticks must not fire them again.
	l.LoadAllAsync(ctx, nil)
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, fired)
}

func TestLoader_LoadAllAsync_FailedDependencyStaysQueued(t *testing.T) {
	e, b := newEngine(t)
	b.fail["ui_base"] = errBoom
	b.deps["Panel"] = []string{"ui_base"}
	ctx := context.Background()

	l := loader.New(e, zap.NewNop())
	require.NoError(t, l.Add(ctx, asset("Panel"), nil, true))

	fired := make(chan struct{})
	l.LoadAllAsync(ctx, func() { close(fired) })

	base, _ := e.Get(asset("ui_base"))
	require.Eventually(t, func() bool { return l.Pending() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, resource.StateWaiting, base.State())
	assert.Less(t, l.Progress(), 1.0)
	assert.Empty(t, b.loaded())

	select {
	case <-fired:
		t.Fatal("completion must not fire while a dependent is blocked")
	case <-time.After(50 * time.Millisecond):
	}

	l.ReleaseAll(false)
	assert.Zero(t, l.Pending())
}

func TestLoader_AddDeduplicates(t *testing.T) {
	e, b := newEngine(t)
	b.deps["Panel"] = []string{"ui_base"}
	ctx := context.Background()

	l := loader.New(e, zap.NewNop())

	var mu sync.Mutex
	calls := 0
	cb := func(_ *resource.Source, ok bool) {
		mu.Lock()
		defer mu.Unlock()
		if ok {
			calls++
		}
	}
	require.NoError(t, l.Add(ctx, asset("Panel"), cb, true))
	require.NoError(t, l.Add(ctx, asset("Panel"), cb, true))
	require.NoError(t, l.Add(ctx, asset("ui_base"), nil, true))

	assert.Len(t, l.Tracked(), 2)
	assert.Equal(t, 2, l.Pending())
	assert.Equal(t, 1, e.Table.RefCount(asset("Panel")))
	assert.Equal(t, 1, e.Table.RefCount(asset("ui_base")))

	require.NoError(t, l.LoadAllSync(ctx))
	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
	assert.Equal(t, []string{"ui_base", "Panel"}, b.loaded())
}

func TestLoader_LoadAllSync_Order(t *testing.T) {
	e, b := newEngine(t)
	ctx := context.Background()

	l := loader.New(e, zap.NewNop())
	require.NoError(t, l.Add(ctx, asset("A"), nil, true))
	require.NoError(t, l.Add(ctx, asset("B"), nil, false))
	require.NoError(t, l.Add(ctx, asset("C"), nil, true))

	require.NoError(t, l.LoadAllSync(ctx))
	assert.Equal(t, []string{"B", "A", "C"}, b.loaded(), "front insertion is served first")
	assert.Zero(t, l.Pending())
	assert.Equal(t, 1.0, l.Progress())
}

func TestLoader_LoadAllSync_CollectsErrors(t *testing.T) {
	e, b := newEngine(t)
	b.fail["A"] = errBoom
	b.deps["C"] = []string{"A"}
	ctx := context.Background()

	l := loader.New(e, zap.NewNop())
	require.NoError(t, l.Add(ctx, asset("A"), nil, true))
	require.NoError(t, l.Add(ctx, asset("B"), nil, true))
	require.NoError(t, l.Add(ctx, asset("C"), nil, true))

	err := l.LoadAllSync(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, err, resource.ErrDependencyFailed)
	assert.Zero(t, l.Pending())
	assert.Equal(t, []string{"B"}, b.loaded())
}

func TestLoader_ReleaseAll(t *testing.T) {
	ctx := context.Background()

	t.Run("Unload", func(t *testing.T) {
		e, b := newEngine(t)
		b.deps["Panel"] = []string{"ui_base"}
		l := loader.New(e, zap.NewNop())
		require.NoError(t, l.Add(ctx, asset("Panel"), nil, true))
		require.NoError(t, l.LoadAllSync(ctx))

		panel, ok := e.Get(asset("Panel"))
		require.True(t, ok)
		ref := panel.Ref()

		l.ReleaseAll(false)
		assert.Empty(t, l.Tracked())
		assert.Zero(t, l.Pending())
		_, ok = e.Get(asset("Panel"))
		assert.False(t, ok)
		_, ok = e.Get(asset("ui_base"))
		assert.False(t, ok)
		assert.False(t, ref.Valid(), "released source went back to its arena")
	})

	t.Run("KeepPooled", func(t *testing.T) {
		e, b := newEngine(t)
		l := loader.New(e, zap.NewNop())
		require.NoError(t, l.Add(ctx, asset("Panel"), nil, true))
		require.NoError(t, l.LoadAllSync(ctx))

		l.ReleaseAll(true)
		panel, ok := e.Get(asset("Panel"))
		require.True(t, ok)
		assert.True(t, panel.IsReady())
		assert.Zero(t, e.Table.RefCount(asset("Panel")))

		// A new session picks up the warm entry without a second read.
		l2 := loader.New(e, zap.NewNop())
		require.NoError(t, l2.Add(ctx, asset("Panel"), nil, true))
		assert.Zero(t, l2.Pending())
		assert.Equal(t, []string{"Panel"}, b.loaded())
	})

	t.Run("SharedBetweenSessions", func(t *testing.T) {
		e, _ := newEngine(t)
		l1 := loader.New(e, zap.NewNop())
		l2 := loader.New(e, zap.NewNop())
		require.NoError(t, l1.Add(ctx, asset("Panel"), nil, true))
		require.NoError(t, l2.Add(ctx, asset("Panel"), nil, true))
		assert.Equal(t, 2, e.Table.RefCount(asset("Panel")))

		l1.ReleaseAll(false)
		panel, ok := e.Get(asset("Panel"))
		require.True(t, ok)
		assert.True(t, panel.Ref().Valid())
		assert.Equal(t, 1, e.Table.RefCount(asset("Panel")))
	})

	t.Run("Detach", func(t *testing.T) {
		e, _ := newEngine(t)
		l := loader.New(e, zap.NewNop())
		require.NoError(t, l.Add(ctx, asset("Panel"), nil, true))

		l.Detach()
		assert.Empty(t, l.Tracked())
		assert.Equal(t, 1, e.Table.RefCount(asset("Panel")))
	})
}

type staticCatalog map[string]resource.Key

func (c staticCatalog) LookupContentID(_ context.Context, id string) (resource.Key, error) {
	key, ok := c[id]
	if !ok {
		return resource.Key{}, errors.New("unknown content id")
	}
	return key, nil
}

func TestLoader_AddContentID(t *testing.T) {
	e, b := newEngine(t)
	ctx := context.Background()

	l := loader.New(e, zap.NewNop())
	assert.ErrorIs(t, l.AddContentID(ctx, "42", nil, true), loader.ErrNoCatalog)

	l = loader.New(e, zap.NewNop(), loader.WithCatalog(staticCatalog{"42": asset("Panel")}))
	require.NoError(t, l.AddContentID(ctx, "42", nil, true))
	assert.Error(t, l.AddContentID(ctx, "43", nil, true))

	tracked := l.Tracked()
	require.Len(t, tracked, 1)
	assert.Equal(t, "42", tracked[0].ContentID)

	require.NoError(t, l.LoadAllSync(ctx))
	assert.Equal(t, []string{"Panel"}, b.loaded())
}

func TestLoader_AddPath(t *testing.T) {
	e, b := newEngine(t)
	ctx := context.Background()

	l := loader.New(e, zap.NewNop())
	require.NoError(t, l.AddPath(ctx, "data/./config.json", nil, true))

	tracked := l.Tracked()
	require.Len(t, tracked, 1)
	assert.Equal(t, resource.CategoryRawFile, tracked[0].Category)
	assert.Equal(t, "data/config.json", tracked[0].Name)

	require.NoError(t, l.LoadAllSync(ctx))
	assert.Equal(t, []string{"data/config.json"}, b.loaded())
}

func TestLoader_AddContainer(t *testing.T) {
	e, b := newEngine(t)
	require.NoError(t, e.Factory.Register(resource.CategoryPackage, b))
	ctx := context.Background()

	l := loader.New(e, zap.NewNop())
	require.NoError(t, l.AddContainer(ctx, "ui", nil, true))
	require.NoError(t, l.LoadAllSync(ctx))

	pkg, ok := e.Get(resource.PackageKey("ui"))
	require.True(t, ok)
	assert.True(t, pkg.IsReady())
}

func TestLoader_AddRejectsBadKeys(t *testing.T) {
	e, b := newEngine(t)
	b.deps["A"] = []string{"B"}
	b.deps["B"] = []string{"A"}
	ctx := context.Background()

	l := loader.New(e, zap.NewNop())
	assert.ErrorIs(t, l.Add(ctx, asset(""), nil, true), resource.ErrEmptyName)
	assert.ErrorIs(t, l.Add(ctx, resource.NewKey(resource.CategoryRemoteImage, "", "x"), nil, true), resource.ErrUnsupportedCategory)
	assert.ErrorIs(t, l.Add(ctx, asset("A"), nil, true), resource.ErrDependencyCycle)
}
