package domain

import "time"

// LineItem is a single cart line. Identity is the (ProductID, Size, Color)
// triple: adding the same variant again bumps Quantity instead of creating a
// second line.
type LineItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
	UnitPrice int64     `json:"unit_price"` // snapshot at add time, display fallback only
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SameVariant reports whether two lines refer to the same product variant.
func (l *LineItem) SameVariant(productID, size, color string) bool {
	return l.ProductID == productID && l.Size == size && l.Color == color
}

type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ItemCount is the sum of line quantities, used for the badge display.
func (c *Cart) ItemCount() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) FindLine(lineID string) *LineItem {
	for i := range c.Items {
		if c.Items[i].ID == lineID {
			return &c.Items[i]
		}
	}
	return nil
}
