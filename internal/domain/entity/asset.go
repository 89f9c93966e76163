package entity

import (
	"time"

	"github.com/marcos-nsantos/menu-media-backend/internal/domain/valueobject"
)

// SourceUpload is the raw input of one ingest call. It is never persisted.
type SourceUpload struct {
	Data        []byte
	ContentType string
	Filename    string
	Kind        valueobject.Kind
	OwnerID     string
}

type Metadata struct {
	Width  int
	Height int
	Format valueobject.Format
	Bytes  int64
}

type ProcessedAsset struct {
	Data     []byte
	Metadata Metadata
}

func NewProcessedAsset(data []byte, width, height int, format valueobject.Format) *ProcessedAsset {
	return &ProcessedAsset{
		Data: data,
		Metadata: Metadata{
			Width:  width,
			Height: height,
			Format: format,
			Bytes:  int64(len(data)),
		},
	}
}

type SizeVariant struct {
	Name     string
	Data     []byte
	Metadata Metadata
}

type StorageObject struct {
	Key         string
	URL         string
	ETag        string
	ContentType string
	Size        int64
}

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type IngestResult struct {
	URL      string
	Key      string
	Variants map[string]string
	Metadata Metadata
}
