package files

// Config holds configuration for the file backends.
type Config struct {
	// Root is the directory raw files are resolved against.
	Root string `mapstructure:"root" default:"./data"`
	// LocalRoot is the directory of bundled local resources.
	LocalRoot string `mapstructure:"local_root" default:"./resources"`
	// MaxBytes caps the size of a single file read into memory.
	MaxBytes int64 `mapstructure:"max_bytes" default:"67108864"`
}
