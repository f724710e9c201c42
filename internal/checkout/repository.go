package checkout

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/velora-shop/storefront/internal/domain"
)

// SessionRepository persists the validated line snapshot for each checkout
// session. The reconciler reads the order contents from here, never from the
// live cart.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *domain.CheckoutSession) error
	GetSession(ctx context.Context, id string) (*domain.CheckoutSession, error)
	UpdateStatus(ctx context.Context, id string, status domain.CheckoutStatus) error
}

type PostgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) CreateSession(ctx context.Context, s *domain.CheckoutSession) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkout_sessions (id, user_id, user_email, status, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.UserID, s.UserEmail, s.Status, s.TotalAmount, s.CreatedAt)
	if err != nil {
		return err
	}

	for _, line := range s.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO checkout_session_items (id, session_id, line_id, product_id, name, quantity, size, color, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.New().String(), s.ID, line.LineID, line.ProductID, line.Name,
			line.Quantity, line.Size, line.Color, line.UnitPrice)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresSessionRepository) GetSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	s := &domain.CheckoutSession{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, user_email, status, total_amount, created_at
		FROM checkout_sessions
		WHERE id = $1
	`, id).Scan(&s.ID, &s.UserID, &s.UserEmail, &s.Status, &s.TotalAmount, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT line_id, product_id, name, quantity, size, color, unit_price
		FROM checkout_session_items
		WHERE session_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var line domain.PricedLine
		if err := rows.Scan(
			&line.LineID, &line.ProductID, &line.Name, &line.Quantity,
			&line.Size, &line.Color, &line.UnitPrice,
		); err != nil {
			return nil, err
		}
		s.Lines = append(s.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return s, nil
}

func (r *PostgresSessionRepository) UpdateStatus(ctx context.Context, id string, status domain.CheckoutStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE checkout_sessions SET status = $1 WHERE id = $2
	`, status, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}
