package pricing

import (
	"math"

	"github.com/velora-shop/storefront/internal/domain"
)

// Amounts are minor currency units throughout. Rates are applied once per
// quote and rounded to the nearest unit at that point; sums of units stay
// exact, so identical inputs always price identically.
const (
	// FreeShippingThreshold is compared against subtotal minus discount.
	FreeShippingThreshold int64 = 100000
	StandardShippingFee   int64 = 9900
	TaxRate                     = 0.18
)

// Quote derives the priced cart from the given lines and an optional promo.
// Pure function: no I/O, no hidden state. Line unit prices must be the
// current catalog prices, not add-time snapshots.
func Quote(lines []domain.PricedLine, promo *domain.PromoCode) domain.PricedCart {
	var subtotal int64
	for _, line := range lines {
		subtotal += int64(line.Quantity) * line.UnitPrice
	}

	var discount int64
	if promo != nil {
		discount = roundRate(subtotal, promo.DiscountRate)
	}

	discounted := subtotal - discount

	var shipping int64
	if discounted < FreeShippingThreshold {
		shipping = StandardShippingFee
	}

	// Tax applies after the discount and excludes shipping.
	tax := roundRate(discounted, TaxRate)

	return domain.PricedCart{
		Lines:    lines,
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    discounted + shipping + tax,
	}
}

func roundRate(amount int64, rate float64) int64 {
	return int64(math.Round(float64(amount) * rate))
}
