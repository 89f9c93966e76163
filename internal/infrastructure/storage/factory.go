package storage

import (
	"context"
	"fmt"

	adapterstorage "github.com/marcos-nsantos/menu-media-backend/internal/adapter/storage"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/config"
)

// New builds the backend selected by STORAGE_BACKEND. It is called once at
// startup; nothing else branches on the backend.
func New(ctx context.Context, cfg *config.Config) (adapterstorage.ObjectStorage, error) {
	switch cfg.Storage.Backend {
	case config.BackendRemote:
		s, err := NewS3Storage(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("creating s3 storage: %w", err)
		}
		return s, nil
	case config.BackendLocal:
		s, err := NewLocalStorage(cfg.Local)
		if err != nil {
			return nil, fmt.Errorf("creating local storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}
