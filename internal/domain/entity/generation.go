package entity

import (
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcos-nsantos/menu-media-backend/internal/domain"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/valueobject"
)

// SizesDir holds the named variants of every kind.
const SizesDir = "sizes"

const maxOwnerLen = 64

// Generation is the key namespace of one ingest: a canonical derivative and
// its variants all derive from BaseName.
type Generation struct {
	Kind     valueobject.Kind
	BaseName string
}

// NewGeneration builds a fresh base name "{owner}-{unixMillis}-{token}".
func NewGeneration(kind valueobject.Kind, ownerID string, now time.Time) (Generation, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Generation{}, fmt.Errorf("generating token: %w", err)
	}
	base := fmt.Sprintf("%s-%d-%s", sanitizeOwner(ownerID), now.UnixMilli(), hex.EncodeToString(id[:4]))
	return Generation{Kind: kind, BaseName: base}, nil
}

func (g Generation) CanonicalKey(format valueobject.Format) string {
	return fmt.Sprintf("%s/%s-%s.%s", g.Kind, g.BaseName, valueobject.ProcessedSuffix, format.Extension())
}

func (g Generation) VariantKey(name string, format valueobject.Format) string {
	return fmt.Sprintf("%s/%s-%s.%s", SizesDir, g.BaseName, name, format.Extension())
}

// VariantPrefix matches every variant of this generation and nothing else.
func (g Generation) VariantPrefix() string {
	return fmt.Sprintf("%s/%s-", SizesDir, g.BaseName)
}

// ParseCanonicalKey recovers the generation from "{kind}/{base}-processed.{ext}".
func ParseCanonicalKey(key string) (Generation, error) {
	dir, file := path.Split(strings.TrimPrefix(key, "/"))
	kind, err := valueobject.ParseKind(strings.TrimSuffix(dir, "/"))
	if err != nil {
		return Generation{}, fmt.Errorf("%w: %q", domain.ErrInvalidAssetURL, key)
	}
	ext := path.Ext(file)
	if _, err := valueobject.ParseFormat(strings.TrimPrefix(ext, ".")); err != nil {
		return Generation{}, fmt.Errorf("%w: %q", domain.ErrInvalidAssetURL, key)
	}
	base, ok := strings.CutSuffix(strings.TrimSuffix(file, ext), "-"+valueobject.ProcessedSuffix)
	if !ok || base == "" {
		return Generation{}, fmt.Errorf("%w: %q", domain.ErrInvalidAssetURL, key)
	}
	return Generation{Kind: kind, BaseName: base}, nil
}

func sanitizeOwner(ownerID string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(ownerID) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > maxOwnerLen {
		out = out[:maxOwnerLen]
	}
	if out == "" {
		return "anon"
	}
	return out
}
