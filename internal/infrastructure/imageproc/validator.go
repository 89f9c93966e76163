package imageproc

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/marcos-nsantos/menu-media-backend/internal/domain"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/entity"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/valueobject"
)

// Validator inspects uploads without decoding pixel data.
type Validator struct {
	policy valueobject.ImagePolicy
}

func NewValidator(policy valueobject.ImagePolicy) *Validator {
	return &Validator{policy: policy}
}

func (v *Validator) Validate(data []byte, declaredType string) (entity.Metadata, error) {
	if len(data) == 0 {
		return entity.Metadata{}, invalid("upload is empty")
	}
	if int64(len(data)) > v.policy.MaxUploadBytes {
		return entity.Metadata{}, invalid("upload is %d bytes, limit is %d", len(data), v.policy.MaxUploadBytes)
	}

	if declaredType != "" {
		if _, ok := valueobject.FormatFromContentType(declaredType); !ok {
			return entity.Metadata{}, invalid("content type %q is not an accepted image type", declaredType)
		}
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return entity.Metadata{}, invalid("content is %s, not an image", detected.String())
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return entity.Metadata{}, invalid("image cannot be decoded")
	}

	format, err := valueobject.ParseFormat(name)
	if err != nil || !v.policy.AllowedFormats.Contains(format) {
		return entity.Metadata{}, invalid("format %s is not allowed", name)
	}

	if cfg.Width < v.policy.MinWidth || cfg.Height < v.policy.MinHeight {
		return entity.Metadata{}, invalid("image is %dx%d, minimum is %dx%d",
			cfg.Width, cfg.Height, v.policy.MinWidth, v.policy.MinHeight)
	}

	if v.policy.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > v.policy.MaxPixels {
		return entity.Metadata{}, invalid("image is %dx%d, which exceeds %d pixels",
			cfg.Width, cfg.Height, v.policy.MaxPixels)
	}

	return entity.Metadata{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
		Bytes:  int64(len(data)),
	}, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidImage, fmt.Sprintf(format, args...))
}
