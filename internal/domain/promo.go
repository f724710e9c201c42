package domain

// PromoCode is a percentage discount applied to the cart subtotal.
// DiscountRate is a fraction in [0, 1).
type PromoCode struct {
	Code         string  `json:"code"`
	DiscountRate float64 `json:"discount_rate"`
}
