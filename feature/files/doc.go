// Package files implements the raw file and local resource backends on top of
// an afero filesystem. Paths are resolved read-only below the configured
// roots, so a key cannot reach outside them.
package files
