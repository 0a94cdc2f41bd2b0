package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"asset-cache/core/database"
	"asset-cache/core/logger"
	"asset-cache/core/resource"
	"asset-cache/core/server"
	"asset-cache/core/storage"
	"asset-cache/feature/files"
	"asset-cache/feature/images"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config is the complete service configuration, one section per component.
type Config struct {
	// Server holds the HTTP listener settings.
	Server server.Config `mapstructure:"server"`
	// Storage holds the bucket package archives are read from.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds the optional manifest database connection.
	Database database.Config `mapstructure:"database"`
	// Cache holds the resource engine thresholds.
	Cache resource.Config `mapstructure:"cache"`
	// Files holds the raw file and local resource roots.
	Files files.Config `mapstructure:"files"`
	// Images holds the remote image download limits.
	Images images.Config `mapstructure:"images"`
}

// LoadConfig reads dir/.env when present, then the environment, on top of
// the struct tag defaults. Keys map to SECTION_FIELD variables, e.g.
// CACHE_WORKERS for cache.workers.
func LoadConfig(dir string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	bindValues(v, Config{}, "")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every setting the engine cannot run with.
func (c *Config) Validate() error {
	var errs error
	if c.Cache.Workers <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("cache.workers must be positive, got %d", c.Cache.Workers))
	}
	if c.Cache.QueueSize < 0 {
		errs = multierr.Append(errs, fmt.Errorf("cache.queue_size must not be negative, got %d", c.Cache.QueueSize))
	}
	if r := c.Cache.LeakMaxRecycledRatio; r < 0 || r > 1 {
		errs = multierr.Append(errs, fmt.Errorf("cache.leak_max_recycled_ratio must be within [0,1], got %g", r))
	}
	if c.Storage.Bucket == "" {
		errs = multierr.Append(errs, fmt.Errorf("storage.bucket is required"))
	}
	if c.Files.Root == "" || c.Files.LocalRoot == "" {
		errs = multierr.Append(errs, fmt.Errorf("files.root and files.local_root are required"))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = multierr.Append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	if c.Database.Enabled && c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		errs = multierr.Append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	return errs
}

// bindValues registers every mapstructure key with its `default` tag so
// AutomaticEnv can find it. Nested structs become dotted prefixes.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}
		// Empty defaults are set too, otherwise the key is unknown to viper.
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
