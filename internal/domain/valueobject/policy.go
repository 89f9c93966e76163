package valueobject

import (
	"fmt"
	"strings"
)

type SizeProfile struct {
	Name   string
	Width  int
	Height int
}

// SizeProfiles decodes "name:WxH,name:WxH" from configuration.
type SizeProfiles []SizeProfile

func (sp *SizeProfiles) Decode(value string) error {
	var out SizeProfiles
	seen := make(map[string]bool)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, dims, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("size profile %q: expected name:WIDTHxHEIGHT", part)
		}
		if name == ProcessedSuffix {
			return fmt.Errorf("size profile %q: name is reserved", part)
		}
		if seen[name] {
			return fmt.Errorf("size profile %q: duplicate name", name)
		}
		d, err := ParseDimensions(dims)
		if err != nil {
			return fmt.Errorf("size profile %q: %w", name, err)
		}
		seen[name] = true
		out = append(out, SizeProfile{Name: name, Width: d.Width, Height: d.Height})
	}
	if len(out) == 0 {
		return fmt.Errorf("size profiles %q: at least one profile is required", value)
	}
	*sp = out
	return nil
}

func (sp SizeProfiles) Names() []string {
	names := make([]string, len(sp))
	for i, p := range sp {
		names[i] = p.Name
	}
	return names
}

// ProcessedSuffix marks canonical derivatives in storage keys.
const ProcessedSuffix = "processed"

// KindPolicy drives the canonical derivative of one kind.
type KindPolicy struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
	Format    Format
}

type ImagePolicy struct {
	Kinds          map[Kind]KindPolicy
	Sizes          SizeProfiles
	VariantFormat  Format
	VariantQuality int
	MinWidth       int
	MinHeight      int
	MaxUploadBytes int64
	MaxPixels      int64
	AllowedFormats Formats
}

func DefaultImagePolicy() ImagePolicy {
	return ImagePolicy{
		Kinds: map[Kind]KindPolicy{
			KindProduct:        {MaxWidth: 800, MaxHeight: 800, Quality: 80, Format: FormatWebP},
			KindCategory:       {MaxWidth: 600, MaxHeight: 600, Quality: 80, Format: FormatWebP},
			KindRestaurantLogo: {MaxWidth: 400, MaxHeight: 400, Quality: 80, Format: FormatWebP},
		},
		Sizes: SizeProfiles{
			{Name: "thumbnail", Width: 150, Height: 150},
			{Name: "medium", Width: 400, Height: 400},
			{Name: "large", Width: 800, Height: 800},
		},
		VariantFormat:  FormatWebP,
		VariantQuality: 80,
		MinWidth:       100,
		MinHeight:      100,
		MaxUploadBytes: 5 << 20,
		MaxPixels:      40_000_000,
		AllowedFormats: Formats{FormatJPEG, FormatPNG, FormatWebP},
	}
}

func (p ImagePolicy) ForKind(k Kind) (KindPolicy, error) {
	kp, ok := p.Kinds[k]
	if !ok {
		return KindPolicy{}, fmt.Errorf("no image policy for kind %q", k)
	}
	return kp, nil
}

func (p ImagePolicy) Validate() error {
	for _, k := range kinds {
		kp, ok := p.Kinds[k]
		if !ok {
			return fmt.Errorf("image policy: kind %q is not configured", k)
		}
		if kp.MaxWidth <= 0 || kp.MaxHeight <= 0 {
			return fmt.Errorf("image policy: kind %q has invalid bounds", k)
		}
		if !kp.Format.IsValid() {
			return fmt.Errorf("image policy: kind %q has invalid format %q", k, kp.Format)
		}
		if kp.Quality < 1 || kp.Quality > 100 {
			return fmt.Errorf("image policy: kind %q quality must be 1-100", k)
		}
	}
	if len(p.Sizes) == 0 {
		return fmt.Errorf("image policy: at least one size profile is required")
	}
	if !p.VariantFormat.IsValid() {
		return fmt.Errorf("image policy: invalid variant format %q", p.VariantFormat)
	}
	if p.VariantQuality < 1 || p.VariantQuality > 100 {
		return fmt.Errorf("image policy: variant quality must be 1-100")
	}
	if p.MaxUploadBytes <= 0 {
		return fmt.Errorf("image policy: max upload bytes must be positive")
	}
	if len(p.AllowedFormats) == 0 {
		return fmt.Errorf("image policy: no allowed formats")
	}
	return nil
}
