// Package resource implements the asset cache engine: resource identity,
// per-resource loading state machine, the category-keyed source factory and
// the reference counted resource table.
//
// # Identity
//
// A Key describes a requested resource. Cache identity is the value
// fingerprint returned by Key.ID (category, container, name); two Key values
// with the same fingerprint always address the same table slot. Keys can be
// pooled with AcquireKey/ReleaseKey, a pooled *Key must not be used after it
// was handed back.
//
// # Sources
//
// A Source owns one logical resource. It moves Waiting -> Loading -> Ready on
// success and falls back to Waiting on failure, notifying its listeners with
// ok=false. Dependencies (declared by the category Backend) are resolved
// before the backend read starts, in both the synchronous and the asynchronous
// path. Dependency cycles fail fast with ErrDependencyCycle.
//
// Sources live in a per-category Arena. Other components keep a Ref, a
// generation tagged handle that stops resolving once the source was recycled.
//
// # Table
//
// The Table indexes sources in five partitions, each behind its own lock,
// and owns the only reference count of every entry:
//
//	engine := resource.NewEngine(cfg, logger, pool)
//	engine.Factory.Register(resource.CategoryRawFile, backend)
//
//	src, err := engine.Resolve(ctx, key)   // get or create + register
//	engine.Acquire(key)                    // refcount 1
//	err = src.LoadSync(ctx, engine)
//	engine.Release(key, true)              // refcount 0, unloaded + recycled
//
// # Engine
//
// Engine bundles a Table, a Factory and an executor for backend I/O. It is
// passed explicitly to loaders; there is no process wide instance.
package resource
