package storage

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/chronocap/chronocap-backend/config"
)

// StoredFile is the result of persisting one uploaded image.
type StoredFile struct {
	OriginalName string
	URL          string
	Path         string
}

// Storage persists capsule images and returns their public URLs. The
// driver is chosen once at startup, never per request.
type Storage interface {
	StoreCapsuleImages(ctx context.Context, files []*multipart.FileHeader) ([]StoredFile, error)
}

// FromConfig selects the driver named in config.
func FromConfig(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "local":
		return NewLocalStorage(cfg.LocalDir, cfg.PublicBaseURL)
	case "s3":
		return NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
