package checkout

import (
	"context"
	"sync"

	"github.com/velora-shop/storefront/internal/domain"
)

// MemorySessionRepository is the in-process SessionRepository used by unit
// tests and static-catalog demo deployments.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.CheckoutSession
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]domain.CheckoutSession)}
}

func (r *MemorySessionRepository) CreateSession(_ context.Context, s *domain.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *s
	stored.Lines = append([]domain.PricedLine(nil), s.Lines...)
	r.sessions[s.ID] = stored
	return nil
}

func (r *MemorySessionRepository) GetSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}

	out := s
	out.Lines = append([]domain.PricedLine(nil), s.Lines...)
	return &out, nil
}

func (r *MemorySessionRepository) UpdateStatus(_ context.Context, id string, status domain.CheckoutStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Status = status
	r.sessions[id] = s
	return nil
}
