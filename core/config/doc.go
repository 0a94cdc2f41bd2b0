// Package config provides configuration management for the asset cache.
//
// Values come from environment variables, optionally seeded from a .env
// file, with defaults taken from the `default` struct tags of each section.
// Nested keys map to upper case variables joined by underscores, so
// cache.workers is read from CACHE_WORKERS.
//
// # Configuration Structure
//
//   - Server: HTTP port, API key, diagnostics toggle, shutdown timeout
//   - Storage: S3/MinIO credentials, bucket and package prefix
//   - Log: logging level and format
//   - Database: optional manifest database (mysql or sqlite)
//   - Cache: worker pool, eviction policy, sweep and leak thresholds
//   - Files: roots of the raw file and local resource backends
//   - Images: remote image download limits
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
