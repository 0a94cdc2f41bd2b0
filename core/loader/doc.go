// Package loader provides per-caller load sessions on top of the resource cache.
//
// A Loader tracks a set of requested resources together with their dependency
// closure. Each tracked source is acquired exactly once in the shared table,
// so several sessions can share one loaded asset while each keeps its own
// view, progress and completion hook.
//
// # Usage
//
//	l := loader.New(engine, logger)
//	_ = l.AddContainer(ctx, "ui", nil, true)
//	_ = l.Add(ctx, resource.NewKey(resource.CategoryPackagedAsset, "ui", "Panel"), onPanel, true)
//	l.LoadAllAsync(ctx, func() { log.Println("done") })
//	...
//	l.ReleaseAll(false)
//
// # Scheduling
//
// LoadAllAsync runs one tick: every queued source whose dependencies are
// Ready is started, the others stay queued. Each completion runs another
// tick, so a dependency chain is loaded front to back without blocking the
// caller. A source whose dependency failed stays queued until the session is
// released.
//
// LoadAllSync drains the same queue on the calling goroutine.
package loader
