package wishlist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps wishlists in process memory. Used in demo mode and
// in handler tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string][]Item
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string][]Item)}
}

func (r *MemoryRepository) List(_ context.Context, userID string) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Item, len(r.items[userID]))
	copy(items, r.items[userID])
	return items, nil
}

func (r *MemoryRepository) Add(_ context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.items[userID] {
		if item.ProductID == productID {
			return nil
		}
	}

	r.items[userID] = append(r.items[userID], Item{
		ID:        uuid.New().String(),
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (r *MemoryRepository) Remove(_ context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.items[userID]
	for i, item := range items {
		if item.ProductID == productID {
			r.items[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}
