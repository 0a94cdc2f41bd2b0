package checks

import (
	"context"
	"fmt"

	"asset-cache/core/storage"

	"github.com/minio/minio-go/v7"
)

// StorageReport is the result of a storage check.
type StorageReport struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
	// HasPackages is false when nothing lives under the package prefix.
	HasPackages bool `json:"has_packages"`
}

// CheckStorage verifies the bucket exists and the package prefix is not empty.
func CheckStorage(ctx context.Context, client storage.Client, bucket, prefix string) (*StorageReport, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	report := &StorageReport{Bucket: bucket, Prefix: prefix}
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: false, MaxKeys: 1}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		report.HasPackages = true
		break
	}
	return report, nil
}
