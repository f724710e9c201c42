package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/velora-shop/storefront/internal/catalog"
	"github.com/velora-shop/storefront/internal/domain"
)

var (
	// ErrInvalidQuantity rejects add requests with a quantity below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrLineNotFound means the referenced line is not in the user's cart.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrProductNotFound means the referenced product is not in the catalog.
	ErrProductNotFound = errors.New("product not found")
)

// Store owns the authoritative line items for each user's cart. Mutations for
// the same user are serialized so rapid quantity clicks cannot interleave and
// lose updates; different users never contend.
type Store struct {
	repo    Repository
	catalog catalog.Reader

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(repo Repository, catalog catalog.Reader) *Store {
	return &Store{
		repo:    repo,
		catalog: catalog,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// AddItem merges into an existing line with the same (product, size, color)
// variant by summing quantities, otherwise appends a new line. The cart is
// created implicitly on first add.
func (s *Store) AddItem(ctx context.Context, userID, productID string, quantity int, size, color string) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("look up product %s: %w", productID, err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = &domain.Cart{
			ID:     uuid.New().String(),
			UserID: userID,
		}
	}

	now := time.Now().UTC()
	merged := false
	for i := range c.Items {
		if c.Items[i].SameVariant(productID, size, color) {
			c.Items[i].Quantity += quantity
			c.Items[i].UpdatedAt = now
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, domain.LineItem{
			ID:        uuid.New().String(),
			ProductID: productID,
			Quantity:  quantity,
			Size:      size,
			Color:     color,
			UnitPrice: product.Price,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	c.UpdatedAt = now

	if err := s.repo.UpsertCart(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateQuantity sets a line's quantity exactly. A quantity below one is a
// removal, not a zero-quantity line.
func (s *Store) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return s.RemoveItem(ctx, userID, lineID)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrLineNotFound
	}

	line := c.FindLine(lineID)
	if line == nil {
		return nil, ErrLineNotFound
	}

	now := time.Now().UTC()
	line.Quantity = quantity
	line.UpdatedAt = now
	c.UpdatedAt = now

	if err := s.repo.UpsertCart(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem is idempotent: removing a line that is already gone is a no-op,
// which keeps concurrent delete clicks retry-safe.
func (s *Store) RemoveItem(ctx context.Context, userID, lineID string) (*domain.Cart, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &domain.Cart{UserID: userID}, nil
	}

	for i := range c.Items {
		if c.Items[i].ID == lineID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = time.Now().UTC()
			if err := s.repo.UpsertCart(ctx, c); err != nil {
				return nil, err
			}
			break
		}
	}
	return c, nil
}

// Clear empties the cart. Called by the reconciler on confirmed payment or
// explicitly by the user; never by any failure path.
func (s *Store) Clear(ctx context.Context, userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.repo.ClearCart(ctx, userID)
}

// Snapshot returns the current cart, or an empty cart if none exists yet.
func (s *Store) Snapshot(ctx context.Context, userID string) (*domain.Cart, error) {
	c, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &domain.Cart{UserID: userID}, nil
	}
	return c, nil
}
