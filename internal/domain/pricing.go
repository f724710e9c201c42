package domain

// PricedLine pairs a cart line with the current catalog unit price. The
// pricing engine never reads the stale add-time snapshot.
type PricedLine struct {
	LineID    string `json:"line_id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	UnitPrice int64  `json:"unit_price"`
}

// PricedCart is derived from cart contents plus an optional promo code.
// All amounts are in minor currency units.
type PricedCart struct {
	Lines    []PricedLine `json:"lines"`
	Subtotal int64        `json:"subtotal"`
	Discount int64        `json:"discount"`
	Shipping int64        `json:"shipping"`
	Tax      int64        `json:"tax"`
	Total    int64        `json:"total"`
}
