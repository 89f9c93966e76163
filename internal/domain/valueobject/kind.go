package valueobject

import (
	"fmt"

	"github.com/marcos-nsantos/menu-media-backend/internal/domain"
)

// Kind is the owning-entity kind; it doubles as the storage directory of
// canonical derivatives.
type Kind string

const (
	KindProduct        Kind = "product"
	KindCategory       Kind = "category"
	KindRestaurantLogo Kind = "restaurant-logo"
)

var kinds = []Kind{KindProduct, KindCategory, KindRestaurantLogo}

func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidKind, s)
}

func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

func (k Kind) IsValid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}
