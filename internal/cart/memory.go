package cart

import (
	"context"
	"sync"

	"github.com/velora-shop/storefront/internal/domain"
)

// MemoryRepository keeps carts in process memory. It backs unit tests and
// demo deployments running against the static catalog.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart // keyed by user id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]domain.Cart)}
}

func (r *MemoryRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[userID]
	if !ok {
		return nil, nil
	}

	out := c
	out.Items = append([]domain.LineItem(nil), c.Items...)
	return &out, nil
}

func (r *MemoryRepository) UpsertCart(_ context.Context, c *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *c
	stored.Items = append([]domain.LineItem(nil), c.Items...)
	r.carts[c.UserID] = stored
	return nil
}

func (r *MemoryRepository) ClearCart(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}
