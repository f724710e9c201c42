package orders

import (
	"context"
	"sync"

	"github.com/velora-shop/storefront/internal/cart"
	"github.com/velora-shop/storefront/internal/checkout"
	"github.com/velora-shop/storefront/internal/domain"
)

// MemoryRepository mirrors the Postgres repository's single-transaction
// semantics in process memory: order creation, session completion and cart
// clearing happen under one lock. Used by unit tests and static-catalog
// demo deployments.
type MemoryRepository struct {
	mu       sync.Mutex
	orders   map[string]domain.Order // keyed by order id
	bySess   map[string]string       // session id -> order id
	carts    cart.Repository
	sessions checkout.SessionRepository
}

func NewMemoryRepository(carts cart.Repository, sessions checkout.SessionRepository) *MemoryRepository {
	return &MemoryRepository{
		orders:   make(map[string]domain.Order),
		bySess:   make(map[string]string),
		carts:    carts,
		sessions: sessions,
	}
}

func (r *MemoryRepository) CreateFromSession(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySess[order.CheckoutSessionID]; exists {
		return ErrDuplicateSession
	}

	stored := *order
	stored.Items = append([]domain.OrderItem(nil), order.Items...)
	r.orders[order.ID] = stored
	r.bySess[order.CheckoutSessionID] = order.ID

	if err := r.sessions.UpdateStatus(ctx, order.CheckoutSessionID, domain.CheckoutStatusCompleted); err != nil {
		return err
	}
	return r.carts.ClearCart(ctx, order.UserID)
}

func (r *MemoryRepository) GetBySessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.bySess[sessionID]
	if !ok {
		return nil, nil
	}
	order := r.orders[id]
	return &order, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders := []domain.Order{}
	for _, order := range r.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (r *MemoryRepository) ListAll(_ context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders := []domain.Order{}
	for _, order := range r.orders {
		orders = append(orders, order)
	}
	return orders, nil
}
