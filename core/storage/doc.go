// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind a small read-only interface used by the
// package backend to fetch archives. This abstraction supports both AWS S3 and
// self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to the target bucket.
//   - GetObject: Retrieves content as a stream.
//   - StatObject: Returns object metadata such as the size.
//   - ListObjects: Lists objects in a bucket (supports prefix/recursive).
//   - ReadObject: Helper reading a whole, size-limited object into memory.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	data, err := storage.ReadObject(ctx, client, "assets", "packages/ui.pkg", 64<<20)
package storage
