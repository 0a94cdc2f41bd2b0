// Package manifest stores package metadata in the database.
//
// A PackageManifest lists the packages a package depends on; the package
// backend reads it to order loads. A ContentEntry maps a content id to the
// category, container and name of the resource that carries it, which lets a
// loader track resources by content id.
package manifest
