package orders

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/velora-shop/storefront/internal/auth"
	"github.com/velora-shop/storefront/internal/cart"
	"github.com/velora-shop/storefront/internal/checkout"
	"github.com/velora-shop/storefront/internal/domain"
)

func newHandlerRepo(t *testing.T) (*Handler, *MemoryRepository, *checkout.MemorySessionRepository) {
	t.Helper()

	sessions := checkout.NewMemorySessionRepository()
	repo := NewMemoryRepository(cart.NewMemoryRepository(), sessions)
	handler := NewHandler(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return handler, repo, sessions
}

func createOrder(t *testing.T, repo *MemoryRepository, sessions *checkout.MemorySessionRepository, orderID, sessionID, userID string) {
	t.Helper()
	ctx := context.Background()

	err := sessions.CreateSession(ctx, &domain.CheckoutSession{
		ID:        sessionID,
		UserID:    userID,
		Status:    domain.CheckoutStatusPending,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	err = repo.CreateFromSession(ctx, &domain.Order{
		ID:                orderID,
		UserID:            userID,
		CheckoutSessionID: sessionID,
		Status:            domain.OrderStatusConfirmed,
		TotalAmount:       15800,
		Items: []domain.OrderItem{
			{ProductID: "tshirt", Name: "T-Shirt", Quantity: 2, UnitPrice: 2500},
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func TestHandler_HandleList(t *testing.T) {
	handler, repo, sessions := newHandlerRepo(t)
	createOrder(t, repo, sessions, "order-1", "cs_1", "user-1")
	createOrder(t, repo, sessions, "order-2", "cs_2", "user-2")

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req = req.WithContext(auth.WithUser(req.Context(), auth.User{ID: "user-1"}))
	rec := httptest.NewRecorder()

	handler.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var orders []domain.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &orders); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "order-1" {
		t.Errorf("expected only the caller's orders, got %+v", orders)
	}
}

func TestHandler_HandleGet(t *testing.T) {
	t.Run("returns an owned order", func(t *testing.T) {
		handler, repo, sessions := newHandlerRepo(t)
		createOrder(t, repo, sessions, "order-1", "cs_1", "user-1")

		req := httptest.NewRequest(http.MethodGet, "/orders/order-1", nil)
		req = req.WithContext(auth.WithUser(req.Context(), auth.User{ID: "user-1"}))
		req.SetPathValue("id", "order-1")
		rec := httptest.NewRecorder()

		handler.HandleGet(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		var order domain.Order
		if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.ID != "order-1" || len(order.Items) != 1 {
			t.Errorf("unexpected order: %+v", order)
		}
	})

	t.Run("another user's order reads as missing", func(t *testing.T) {
		handler, repo, sessions := newHandlerRepo(t)
		createOrder(t, repo, sessions, "order-1", "cs_1", "user-1")

		req := httptest.NewRequest(http.MethodGet, "/orders/order-1", nil)
		req = req.WithContext(auth.WithUser(req.Context(), auth.User{ID: "user-2"}))
		req.SetPathValue("id", "order-1")
		rec := httptest.NewRecorder()

		handler.HandleGet(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("admin can read any order", func(t *testing.T) {
		handler, repo, sessions := newHandlerRepo(t)
		createOrder(t, repo, sessions, "order-1", "cs_1", "user-1")

		req := httptest.NewRequest(http.MethodGet, "/orders/order-1", nil)
		req = req.WithContext(auth.WithUser(req.Context(), auth.User{ID: "admin-1", Admin: true}))
		req.SetPathValue("id", "order-1")
		rec := httptest.NewRecorder()

		handler.HandleGet(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("unknown order is 404", func(t *testing.T) {
		handler, _, _ := newHandlerRepo(t)

		req := httptest.NewRequest(http.MethodGet, "/orders/nope", nil)
		req = req.WithContext(auth.WithUser(req.Context(), auth.User{ID: "user-1"}))
		req.SetPathValue("id", "nope")
		rec := httptest.NewRecorder()

		handler.HandleGet(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleAdminList(t *testing.T) {
	handler, repo, sessions := newHandlerRepo(t)
	createOrder(t, repo, sessions, "order-1", "cs_1", "user-1")
	createOrder(t, repo, sessions, "order-2", "cs_2", "user-2")

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req = req.WithContext(auth.WithUser(req.Context(), auth.User{ID: "admin-1", Admin: true}))
	rec := httptest.NewRecorder()

	handler.HandleAdminList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var orders []domain.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &orders); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("expected all orders, got %d", len(orders))
	}
}
