package images

// Config holds configuration for the remote image backend.
type Config struct {
	// TimeoutSeconds bounds a single download.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"15"`
	// MaxBytes caps the size of a downloaded image.
	MaxBytes int `mapstructure:"max_bytes" default:"16777216"`
	// MaxRedirects is the number of redirects followed per download.
	MaxRedirects int `mapstructure:"max_redirects" default:"3"`
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" default:"asset-cache"`
}
