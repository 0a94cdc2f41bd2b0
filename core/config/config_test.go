package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"asset-cache/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.Diagnostics)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "assets", cfg.Storage.Bucket)
	assert.Equal(t, "packages/", cfg.Storage.PackagePrefix)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "mysql", cfg.Database.Driver)

	assert.Equal(t, 4, cfg.Cache.Workers)
	assert.Equal(t, 64, cfg.Cache.QueueSize)
	assert.True(t, cfg.Cache.UnloadWhenZero)
	assert.Equal(t, 10000, cfg.Cache.LeakMaxEntries)
	assert.InDelta(t, 0.25, cfg.Cache.LeakMaxRecycledRatio, 1e-9)

	assert.Equal(t, "./data", cfg.Files.Root)
	assert.Equal(t, int64(67108864), cfg.Files.MaxBytes)
	assert.Equal(t, 15, cfg.Images.TimeoutSeconds)
	assert.Equal(t, "asset-cache", cfg.Images.UserAgent)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CACHE_WORKERS", "16")
	t.Setenv("CACHE_UNLOAD_WHEN_ZERO", "false")
	t.Setenv("IMAGES_MAX_REDIRECTS", "0")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 16, cfg.Cache.Workers)
	assert.False(t, cfg.Cache.UnloadWhenZero)
	assert.Equal(t, 0, cfg.Images.MaxRedirects)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	env := "DATABASE_ENABLED=true\nDATABASE_DRIVER=sqlite\nFILES_ROOT=/srv/assets\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DATABASE_ENABLED")
		os.Unsetenv("DATABASE_DRIVER")
		os.Unsetenv("FILES_ROOT")
	})

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/srv/assets", cfg.Files.Root)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("CACHE_WORKERS", "0")
	t.Setenv("CACHE_LEAK_MAX_RECYCLED_RATIO", "2")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := config.LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
	assert.ErrorContains(t, err, "cache.workers")
	assert.ErrorContains(t, err, "leak_max_recycled_ratio")
	assert.ErrorContains(t, err, "log.format")
}

func TestConfig_ValidateDatabaseDriver(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)

	cfg.Database.Driver = "postgres"
	assert.NoError(t, cfg.Validate(), "driver is only checked when the database is enabled")

	cfg.Database.Enabled = true
	assert.ErrorContains(t, cfg.Validate(), "postgres")
}
