// Package packages implements the package, packaged asset and scene backends.
//
// A package is a zip archive stored in the object storage bucket under
// <package_prefix><name>.pkg. Loading a package downloads the archive into
// memory; the manifest store declares which other packages must be loaded
// before it.
//
// Packaged assets and scenes are entries of a package. They depend on their
// container package and are extracted from its loaded Archive, so the package
// is read from storage once no matter how many of its entries are requested.
//
// # Usage
//
//	pkgs := packages.NewPackageBackend(client, cfg.Storage, manifestStore, logger)
//	_ = packages.Register(engine.Factory, pkgs, packages.NewAssetBackend(logger))
package packages
