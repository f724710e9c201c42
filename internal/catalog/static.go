package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/velora-shop/storefront/internal/domain"
)

// StaticReader serves a fixed in-memory catalog. It backs demo deployments
// and unit tests through the same Reader interface as the Postgres catalog.
type StaticReader struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	order    []string
}

func NewStaticReader(products ...domain.Product) *StaticReader {
	if len(products) == 0 {
		products = SampleProducts()
	}

	r := &StaticReader{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		r.products[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r
}

func (r *StaticReader) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var products []domain.Product
	for _, id := range r.order {
		p := r.products[id]
		if !p.Active {
			continue
		}
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Gender != "" && p.Gender != filter.Gender {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *StaticReader) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// SetStock overrides a product's stock level. Test hook.
func (r *StaticReader) SetStock(id string, quantity int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.products[id]; ok {
		p.StockQuantity = quantity
		r.products[id] = p
	}
}

// SetPrice overrides a product's price. Test hook.
func (r *StaticReader) SetPrice(id string, price int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.products[id]; ok {
		p.Price = price
		r.products[id] = p
	}
}

// SetColors overrides a product's offered colors. Test hook.
func (r *StaticReader) SetColors(id string, colors []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.products[id]; ok {
		p.Colors = colors
		r.products[id] = p
	}
}

// SampleProducts mirrors the seed rows shipped in the migrations.
func SampleProducts() []domain.Product {
	now := time.Now().UTC()
	return []domain.Product{
		{
			ID:            "men-tshirt-1",
			Name:          "Classic Men's T-Shirt",
			Description:   "Comfortable cotton t-shirt perfect for everyday wear",
			Price:         129900,
			CategoryID:    "men-tshirts",
			StockQuantity: 50,
			Sizes:         []string{"S", "M", "L", "XL", "XXL"},
			Colors:        []string{"Black", "White", "Navy", "Gray"},
			Gender:        "men",
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            "men-shirt-1",
			Name:          "Formal Men's Shirt",
			Description:   "Premium quality formal shirt for office and events",
			Price:         249900,
			CategoryID:    "men-shirts",
			StockQuantity: 30,
			Sizes:         []string{"S", "M", "L", "XL", "XXL"},
			Colors:        []string{"White", "Blue", "Light Blue", "Pink"},
			Gender:        "men",
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            "men-jeans-1",
			Name:          "Men's Denim Jeans",
			Description:   "Stylish and comfortable denim jeans",
			Price:         399900,
			CategoryID:    "men-jeans",
			StockQuantity: 25,
			Sizes:         []string{"28", "30", "32", "34", "36", "38"},
			Colors:        []string{"Blue", "Black", "Dark Blue", "Light Blue"},
			Gender:        "men",
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:            "women-tshirt-1",
			Name:          "Women's Casual T-Shirt",
			Description:   "Soft and comfortable t-shirt for women",
			Price:         119900,
			CategoryID:    "women-tshirts",
			StockQuantity: 40,
			Sizes:         []string{"XS", "S", "M", "L", "XL"},
			Colors:        []string{"Pink", "White", "Black", "Purple"},
			Gender:        "women",
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}
