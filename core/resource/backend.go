package resource

import "context"

// Handle is the opaque loaded asset produced by a Backend.
type Handle any

// ProgressFunc receives the fraction [0,1] of a backend read.
type ProgressFunc func(fraction float64)

// Backend performs the actual I/O for one category.
type Backend interface {
	// Load reads the resource. It blocks until done and is called on the
	// caller goroutine for sync loads and on an executor goroutine for async
	// loads. Dependencies are Ready and can be fetched through lookup.
	Load(ctx context.Context, key Key, lookup Lookup, progress ProgressFunc) (Handle, error)
	// Dependencies returns the keys that must be Ready before Load runs.
	Dependencies(ctx context.Context, key Key) ([]Key, error)
	// Free releases a handle previously returned by Load.
	Free(h Handle) error
}

// Lookup finds registered sources.
type Lookup interface {
	Get(key Key) (*Source, bool)
}

// Executor runs backend reads for async loads.
type Executor interface {
	Submit(job func())
}

// Env is what a Source needs to satisfy its dependencies.
type Env interface {
	Lookup
	Executor
	// Resolve returns the registered source for key, creating and registering
	// one when absent.
	Resolve(ctx context.Context, key Key) (*Source, error)
}

// holder answers whether a source is referenced.
type holder interface {
	holds(src *Source) bool
}
