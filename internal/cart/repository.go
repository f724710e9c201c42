package cart

import (
	"context"
	"database/sql"

	"github.com/velora-shop/storefront/internal/domain"
)

type Repository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, c *domain.Cart) error
	ClearCart(ctx context.Context, userID string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	c := &domain.Cart{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, updated_at
		FROM carts
		WHERE user_id = $1
	`, userID).Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, quantity, size, color, unit_price, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at, id
	`, c.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.Quantity, &item.Size, &item.Color,
			&item.UnitPrice, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return c, nil
}

func (r *PostgresRepository) UpsertCart(ctx context.Context, c *domain.Cart) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`, c.ID, c.UserID, c.UpdatedAt)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
		return err
	}

	for _, item := range c.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart_items (id, cart_id, product_id, quantity, size, color, unit_price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, item.ID, c.ID, item.ProductID, item.Quantity, item.Size, item.Color,
			item.UnitPrice, item.CreatedAt, item.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) ClearCart(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	return err
}
