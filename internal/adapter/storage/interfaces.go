package storage

import (
	"context"
	"errors"

	"github.com/marcos-nsantos/menu-media-backend/internal/domain/entity"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/valueobject"
)

//go:generate mockgen -source=interfaces.go -destination=../../mocks/storage_mocks.go -package=mocks

var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage is implemented by the S3 and local filesystem backends.
// Delete and DeleteByPrefix succeed when nothing matches.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (*entity.StorageObject, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	List(ctx context.Context, prefix string) ([]entity.ObjectInfo, error)
	URLFor(key string) string
	KeyFromURL(rawURL string) (string, error)
}

type ImageValidator interface {
	Validate(data []byte, declaredType string) (entity.Metadata, error)
}

type ImageTransformer interface {
	Process(ctx context.Context, data []byte, policy valueobject.KindPolicy) (*entity.ProcessedAsset, error)
	DeriveVariants(ctx context.Context, canonical []byte, sizes []valueobject.SizeProfile) (map[string]entity.SizeVariant, error)
}
