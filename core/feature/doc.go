// Package feature provides the plugin-like feature loading system.
//
// Each HTTP surface of the cache (diagnostics, preload) is a Feature that
// registers its own routes. The Manager keeps the registry and loads the
// enabled ones in registration order.
//
// # Feature Interface
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// # Manager
//
//   - Register adds a feature. Duplicate names are rejected.
//   - LoadAll loads every enabled feature and stops at the first error.
package feature
