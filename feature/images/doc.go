// Package images implements the remote image backend. Images are downloaded
// with the fiber HTTP client and decoded in memory; PNG, JPEG, GIF, BMP and
// WebP are supported.
package images
