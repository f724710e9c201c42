package domain

import "time"

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         int64     `json:"price"`
	CategoryID    string    `json:"category_id,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	StockQuantity int       `json:"stock_quantity"`
	Sizes         []string  `json:"sizes,omitempty"`
	Colors        []string  `json:"colors,omitempty"`
	Gender        string    `json:"gender,omitempty"`
	Active        bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasSize reports whether the product defines the given size axis value.
// A product with no sizes accepts only an empty selector.
func (p *Product) HasSize(size string) bool {
	if size == "" {
		return true
	}
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

func (p *Product) HasColor(color string) bool {
	if color == "" {
		return true
	}
	for _, c := range p.Colors {
		if c == color {
			return true
		}
	}
	return false
}

// ProductFilter narrows catalog listings. Zero values mean "no constraint".
type ProductFilter struct {
	CategoryID string
	Gender     string
	Search     string
}
