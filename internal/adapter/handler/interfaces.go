package handler

import (
	"context"

	"github.com/marcos-nsantos/menu-media-backend/internal/domain/entity"
)

//go:generate mockgen -source=interfaces.go -destination=../../mocks/handler_mocks.go -package=mocks

type AssetService interface {
	Ingest(ctx context.Context, input entity.SourceUpload) (*entity.IngestResult, error)
	Remove(ctx context.Context, url string) error
}
