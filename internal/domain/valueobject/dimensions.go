package valueobject

import (
	"fmt"
	"strconv"
	"strings"
)

type Dimensions struct {
	Width  int
	Height int
}

func NewDimensions(width, height int) Dimensions {
	return Dimensions{Width: width, Height: height}
}

// ParseDimensions reads the "WIDTHxHEIGHT" form used in configuration.
func ParseDimensions(s string) (Dimensions, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Dimensions{}, fmt.Errorf("dimensions %q: expected WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return Dimensions{}, fmt.Errorf("dimensions %q: width: %w", s, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return Dimensions{}, fmt.Errorf("dimensions %q: height: %w", s, err)
	}
	d := NewDimensions(width, height)
	if !d.IsValid() {
		return Dimensions{}, fmt.Errorf("dimensions %q: must be positive", s)
	}
	return d, nil
}

// Decode implements envconfig.Decoder.
func (d *Dimensions) Decode(value string) error {
	parsed, err := ParseDimensions(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Dimensions) IsValid() bool {
	return d.Width > 0 && d.Height > 0
}

// Contains reports whether a width x height image fits inside d.
func (d Dimensions) Contains(width, height int) bool {
	return width <= d.Width && height <= d.Height
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}
