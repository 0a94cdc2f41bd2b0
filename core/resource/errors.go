package resource

import "errors"

var (
	// ErrUnsupportedCategory is returned when no backend is registered for a category.
	ErrUnsupportedCategory = errors.New("resource category not supported")
	// ErrCategoryRegistered is returned when a category already has a backend.
	ErrCategoryRegistered = errors.New("resource category already registered")
	// ErrEmptyName is returned when a load is requested for a key without name.
	ErrEmptyName = errors.New("resource name is empty")
	// ErrDependencyCycle is returned when a dependency chain re-enters itself.
	ErrDependencyCycle = errors.New("resource dependency cycle")
	// ErrDependencyFailed is returned when a dependency could not be loaded.
	ErrDependencyFailed = errors.New("resource dependency failed")
	// ErrRecycled is returned when an operation targets a recycled source.
	ErrRecycled = errors.New("resource source recycled")
	// ErrLoadFailed is returned to waiters of a load that settled unsuccessfully.
	ErrLoadFailed = errors.New("resource load failed")
	// ErrConflict is returned when a key is already owned by another live source.
	ErrConflict = errors.New("resource key conflict")
)
