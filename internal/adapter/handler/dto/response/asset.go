package response

import (
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/entity"
)

type MetadataResponse struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Bytes  int64  `json:"bytes"`
}

type AssetResponse struct {
	URL      string            `json:"url"`
	Variants map[string]string `json:"variants"`
	Metadata MetadataResponse  `json:"metadata"`
}

func AssetFromResult(result *entity.IngestResult) AssetResponse {
	return AssetResponse{
		URL:      result.URL,
		Variants: result.Variants,
		Metadata: MetadataResponse{
			Width:  result.Metadata.Width,
			Height: result.Metadata.Height,
			Format: string(result.Metadata.Format),
			Bytes:  result.Metadata.Bytes,
		},
	}
}
