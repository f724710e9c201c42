package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/velora-shop/storefront/internal/checkout"
	"github.com/velora-shop/storefront/internal/domain"
	"github.com/velora-shop/storefront/internal/messaging"
)

var meter = otel.Meter("orders")

// Reconciler applies a confirmed payment back into durable state: exactly
// one order per checkout session, then the cart is cleared. It is the only
// place cart clearing is tied to payment confirmation; success signals may
// arrive more than once (redirect replays, webhook plus redirect) and every
// delivery after the first returns the already-created order.
type Reconciler struct {
	repo     Repository
	sessions checkout.SessionRepository
	producer *messaging.Producer
	logger   *slog.Logger

	ordersPlaced metric.Int64Counter
}

func NewReconciler(repo Repository, sessions checkout.SessionRepository, producer *messaging.Producer, logger *slog.Logger) *Reconciler {
	ordersPlaced, _ := meter.Int64Counter("orders.placed")

	return &Reconciler{
		repo:         repo,
		sessions:     sessions,
		producer:     producer,
		logger:       logger,
		ordersPlaced: ordersPlaced,
	}
}

// Reconcile turns the session's persisted line snapshot into an order. Once
// started it runs to completion: order creation, session completion and cart
// clearing commit as one unit, so callers never observe a half-applied
// outcome.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string) (*domain.Order, error) {
	session, err := r.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load checkout session: %w", err)
	}
	if session == nil {
		return nil, checkout.ErrSessionNotFound
	}

	switch session.Status {
	case domain.CheckoutStatusPending, domain.CheckoutStatusCompleted:
		// pending: first delivery. completed: replayed delivery; the
		// conflict path below returns the existing order.
	default:
		return nil, checkout.ErrSessionNotPending
	}

	items := make([]domain.OrderItem, 0, len(session.Lines))
	for _, line := range session.Lines {
		items = append(items, domain.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			Size:      line.Size,
			Color:     line.Color,
			UnitPrice: line.UnitPrice,
		})
	}

	order := &domain.Order{
		ID:                uuid.New().String(),
		UserID:            session.UserID,
		CheckoutSessionID: sessionID,
		Status:            domain.OrderStatusConfirmed,
		TotalAmount:       session.TotalAmount,
		Items:             items,
		CreatedAt:         time.Now().UTC(),
	}

	if err := r.repo.CreateFromSession(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicateSession) {
			existing, getErr := r.repo.GetBySessionID(ctx, sessionID)
			if getErr != nil {
				return nil, fmt.Errorf("load existing order: %w", getErr)
			}
			r.logger.Info("checkout session already reconciled", "session_id", sessionID, "order_id", existing.ID)
			return existing, nil
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	r.ordersPlaced.Add(ctx, 1)

	if r.producer != nil {
		event := domain.OrderPlacedEvent{
			OrderID:           order.ID,
			CheckoutSessionID: sessionID,
			UserID:            order.UserID,
			UserEmail:         session.UserEmail,
			TotalAmount:       order.TotalAmount,
			Items:             order.Items,
			Timestamp:         order.CreatedAt,
		}
		if err := r.producer.Publish(ctx, order.ID, event); err != nil {
			r.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
		}
	}

	r.logger.Info("order placed", "order_id", order.ID, "session_id", sessionID, "user_id", order.UserID, "total", order.TotalAmount)
	return order, nil
}
