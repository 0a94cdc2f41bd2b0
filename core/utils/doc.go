// Package utils provides small helpers shared by the cache packages: loose
// type conversion for query parameters and numeric clamping.
package utils
