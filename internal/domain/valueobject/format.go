package valueobject

import (
	"fmt"
	"strings"
)

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// FormatFromContentType maps a declared MIME type to a format.
func FormatFromContentType(contentType string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return FormatJPEG, true
	case "image/png":
		return FormatPNG, true
	case "image/webp":
		return FormatWebP, true
	default:
		return "", false
	}
}

func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func (f Format) IsValid() bool {
	return f == FormatJPEG || f == FormatPNG || f == FormatWebP
}

// Formats is a comma separated list of formats, decodable by envconfig.
type Formats []Format

func (fs *Formats) Decode(value string) error {
	var out Formats
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFormat(part)
		if err != nil {
			return err
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return fmt.Errorf("formats %q: at least one format is required", value)
	}
	*fs = out
	return nil
}

func (fs Formats) Contains(f Format) bool {
	for _, candidate := range fs {
		if candidate == f {
			return true
		}
	}
	return false
}
