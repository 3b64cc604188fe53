package storage

import (
	"context"
	"errors"
	"fmt"

	"pdf-quiz/internal/config"
	"pdf-quiz/internal/domain"
)

// ErrNotFound is wrapped by Get when a key does not exist.
var ErrNotFound = errors.New("blob not found")

// New builds the blob store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (domain.BlobStore, error) {
	switch cfg.Driver {
	case config.StorageFS, "":
		return NewFSStore(cfg.BasePath)
	case config.StorageS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.Driver)
	}
}

var (
	_ domain.BlobStore = (*FSStore)(nil)
	_ domain.BlobStore = (*S3Store)(nil)
)
