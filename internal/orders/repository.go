package orders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/velora-shop/storefront/internal/domain"
)

// ErrDuplicateSession means an order already exists for the checkout
// session. Callers treat it as a benign signal, not a failure.
var ErrDuplicateSession = errors.New("order already exists for checkout session")

type Repository interface {
	// CreateFromSession atomically creates the order, marks the checkout
	// session completed and clears the owning user's cart. A session that
	// already produced an order fails with ErrDuplicateSession and leaves
	// everything untouched.
	CreateFromSession(ctx context.Context, order *domain.Order) error
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateFromSession(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, checkout_session_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (checkout_session_id) DO NOTHING
	`, order.ID, order.UserID, order.CheckoutSessionID, order.Status, order.TotalAmount, order.CreatedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrDuplicateSession
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New().String()
		item := order.Items[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, quantity, size, color, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, item.ID, order.ID, item.ProductID, item.Name, item.Quantity, item.Size, item.Color, item.UnitPrice)
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE checkout_sessions SET status = $1 WHERE id = $2
	`, domain.CheckoutStatusCompleted, order.CheckoutSessionID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, order.UserID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	return r.getBy(ctx, `checkout_session_id`, sessionID)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getBy(ctx, `id`, id)
}

func (r *PostgresRepository) getBy(ctx context.Context, column, value string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, checkout_session_id, status, total_amount, created_at
		FROM orders
		WHERE `+column+` = $1
	`, value).Scan(&order.ID, &order.UserID, &order.CheckoutSessionID, &order.Status, &order.TotalAmount, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, name, quantity, size, color, unit_price
		FROM order_items
		WHERE order_id = $1
	`, order.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.Quantity, &item.Size, &item.Color, &item.UnitPrice); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, checkout_session_id, status, total_amount, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, checkout_session_id, status, total_amount, created_at
		FROM orders
		ORDER BY created_at DESC
	`)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.CheckoutSessionID, &order.Status, &order.TotalAmount, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, product_id, name, quantity, size, color, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ID, &item.ProductID, &item.Name, &item.Quantity, &item.Size, &item.Color, &item.UnitPrice); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}
