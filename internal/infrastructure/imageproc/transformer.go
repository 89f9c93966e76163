package imageproc

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"go.uber.org/multierr"

	"github.com/marcos-nsantos/menu-media-backend/internal/domain"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/entity"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/valueobject"
)

// Transformer produces canonical derivatives and named size variants. All
// decode/resize/encode work runs inside the gate.
type Transformer struct {
	gate           *Gate
	variantFormat  valueobject.Format
	variantQuality int
}

func NewTransformer(gate *Gate, variantFormat valueobject.Format, variantQuality int) *Transformer {
	return &Transformer{
		gate:           gate,
		variantFormat:  variantFormat,
		variantQuality: variantQuality,
	}
}

// Process fits the image inside the policy box without enlarging it and
// re-encodes it in the policy format.
func (t *Transformer) Process(ctx context.Context, data []byte, policy valueobject.KindPolicy) (*entity.ProcessedAsset, error) {
	var asset *entity.ProcessedAsset

	err := t.gate.Do(ctx, func() error {
		img, err := decode(data)
		if err != nil {
			return err
		}

		bounds := img.Bounds()
		box := valueobject.NewDimensions(policy.MaxWidth, policy.MaxHeight)
		if !box.Contains(bounds.Dx(), bounds.Dy()) {
			img = imaging.Fit(img, box.Width, box.Height, imaging.Lanczos)
			bounds = img.Bounds()
		}

		out, err := encode(img, policy.Format, policy.Quality)
		if err != nil {
			return err
		}

		asset = entity.NewProcessedAsset(out, bounds.Dx(), bounds.Dy(), policy.Format)
		return nil
	})
	if err != nil {
		return nil, processingFailed(err)
	}

	return asset, nil
}

// DeriveVariants crops the canonical image to fill every profile box. A
// failing profile does not stop the others; the returned map holds the
// variants that succeeded and the error lists the ones that did not.
func (t *Transformer) DeriveVariants(ctx context.Context, canonical []byte, sizes []valueobject.SizeProfile) (map[string]entity.SizeVariant, error) {
	variants := make(map[string]entity.SizeVariant, len(sizes))
	var errs error

	err := t.gate.Do(ctx, func() error {
		src, err := decode(canonical)
		if err != nil {
			return err
		}

		for _, size := range sizes {
			if err := ctx.Err(); err != nil {
				errs = multierr.Append(errs, err)
				return nil
			}

			variant, err := t.variant(src, size)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("variant %s: %w", size.Name, err))
				continue
			}
			variants[size.Name] = variant
		}
		return nil
	})
	if err != nil {
		return nil, processingFailed(err)
	}
	if errs != nil {
		return variants, processingFailed(errs)
	}

	return variants, nil
}

func (t *Transformer) variant(src image.Image, size valueobject.SizeProfile) (entity.SizeVariant, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return entity.SizeVariant{}, fmt.Errorf("invalid box %dx%d", size.Width, size.Height)
	}

	img := imaging.Fill(src, size.Width, size.Height, imaging.Center, imaging.Lanczos)

	out, err := encode(img, t.variantFormat, t.variantQuality)
	if err != nil {
		return entity.SizeVariant{}, err
	}

	return entity.SizeVariant{
		Name: size.Name,
		Data: out,
		Metadata: entity.Metadata{
			Width:  size.Width,
			Height: size.Height,
			Format: t.variantFormat,
			Bytes:  int64(len(out)),
		},
	}, nil
}

func processingFailed(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrProcessingFailed, err)
}
