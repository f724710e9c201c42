package wishlist

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/velora-shop/storefront/internal/domain"
)

type Item struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Product   *domain.Product `json:"product,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type Repository interface {
	List(ctx context.Context, userID string) ([]Item, error)
	// Add is idempotent: re-adding a wishlisted product is a no-op.
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, created_at
		FROM wishlist_items
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ProductID, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *PostgresRepository) Add(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wishlist_items (id, user_id, product_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, uuid.New().String(), userID, productID, time.Now().UTC())
	return err
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2
	`, userID, productID)
	return err
}
