package pricing

import (
	"context"
	"strings"

	"github.com/velora-shop/storefront/internal/domain"
)

// Resolver looks up a promo code. A nil result with a nil error means the
// code does not resolve; the engine then applies no discount.
type Resolver interface {
	Resolve(ctx context.Context, code string) (*domain.PromoCode, error)
}

// StaticResolver is the current promo table. Codes are case-insensitive.
// Swapping in a persisted resolver is a matter of implementing Resolver;
// the engine never knows the difference.
type StaticResolver struct {
	codes map[string]float64
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		codes: map[string]float64{
			"SAVE10":    0.10,
			"WELCOME20": 0.20,
		},
	}
}

func (r *StaticResolver) Resolve(_ context.Context, code string) (*domain.PromoCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	rate, ok := r.codes[normalized]
	if !ok {
		return nil, nil
	}
	return &domain.PromoCode{Code: normalized, DiscountRate: rate}, nil
}
