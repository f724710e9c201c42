package catalog

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/velora-shop/storefront/internal/domain"
)

// Reader is the read-only catalog surface consumed by the cart and checkout
// flows. Price and stock reported here are authoritative at validation time.
type Reader interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price, category_id, image_url,
		       stock_quantity, sizes, colors, gender, is_active, created_at, updated_at
		FROM products
		WHERE is_active
		  AND ($1 = '' OR category_id = $1)
		  AND ($2 = '' OR gender = $2)
		  AND ($3 = '' OR name ILIKE '%' || $3 || '%')
		ORDER BY created_at DESC, id
	`, filter.CategoryID, filter.Gender, filter.Search)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.ImageURL,
			&p.StockQuantity, pq.Array(&p.Sizes), pq.Array(&p.Colors), &p.Gender,
			&p.Active, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, category_id, image_url,
		       stock_quantity, sizes, colors, gender, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.ImageURL,
		&p.StockQuantity, pq.Array(&p.Sizes), pq.Array(&p.Colors), &p.Gender,
		&p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return p, nil
}
