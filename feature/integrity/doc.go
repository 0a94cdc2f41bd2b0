// Package integrity provides health checks of the infrastructure the cache
// loads from.
//
// # Checks Provided
//
//   - Storage: the bucket exists and the package prefix holds archives.
//   - Roots: the raw file and local resource directories exist.
//   - Schema: the manifest tables carry every required column.
//   - Packages: manifests reconciled against package archives (see core/reconcile).
//
// # HTTP Endpoints
//
//   - GET /integrity : runs all checks.
//   - GET /integrity/storage
//   - GET /integrity/roots
//   - GET /integrity/schema
//   - GET /integrity/packages : 503 without manifest database.
package integrity
