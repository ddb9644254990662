package blobstore

import (
	"context"
	"fmt"

	"pxs/internal/config"
	"pxs/internal/px"
)

// NewBlobStoreFromConfig creates a BlobStore based on the blobs config type.
// A filesystem store without its own dir uses attachmentsDir.
func NewBlobStoreFromConfig(ctx context.Context, cfg config.BlobsConfig, attachmentsDir string) (px.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryBlobStore("attachments"), nil
	case "s3":
		return NewS3BlobStore(ctx, cfg)
	case "filesystem", "":
		dir := cfg.Dir
		if dir == "" {
			dir = attachmentsDir
		}
		if dir == "" {
			return nil, fmt.Errorf("filesystem blob store requires a directory")
		}
		return NewFileSystemBlobStore(dir)
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}
}
