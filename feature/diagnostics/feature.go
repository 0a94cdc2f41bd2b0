package diagnostics

import (
	"github.com/gofiber/fiber/v2"
)

// Feature exposes the cache diagnostics over HTTP.
type Feature struct {
	service *Service
	enabled bool
}

// NewFeature creates the diagnostics feature.
func NewFeature(service *Service, enabled bool) *Feature {
	return &Feature{service: service, enabled: enabled}
}

// Name returns the feature name.
func (f *Feature) Name() string {
	return "diagnostics"
}

// IsEnabled reports whether the routes should be registered.
func (f *Feature) IsEnabled() bool {
	return f.enabled && f.service != nil
}

// Load registers the diagnostics routes.
func (f *Feature) Load(app fiber.Router) error {
	NewHandler(f.service).RegisterRoutes(app)
	return nil
}
