package wishlist

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/velora-shop/storefront/internal/auth"
	"github.com/velora-shop/storefront/internal/catalog"
	"github.com/velora-shop/storefront/internal/domain"
)

func newTestHandler() *Handler {
	now := time.Now().UTC()
	reader := catalog.NewStaticReader(
		domain.Product{ID: "tshirt", Name: "T-Shirt", Price: 1500, StockQuantity: 10, Active: true, CreatedAt: now, UpdatedAt: now},
	)
	return NewHandler(NewMemoryRepository(), reader, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), auth.User{ID: "user-1"}))
}

func TestHandler_Wishlist(t *testing.T) {
	t.Run("add then list resolves the product", func(t *testing.T) {
		handler := newTestHandler()

		req := authed(httptest.NewRequest(http.MethodPost, "/wishlist", strings.NewReader(`{"product_id":"tshirt"}`)))
		rec := httptest.NewRecorder()
		handler.HandleAdd(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}

		req = authed(httptest.NewRequest(http.MethodGet, "/wishlist", nil))
		rec = httptest.NewRecorder()
		handler.HandleList(rec, req)

		var items []Item
		if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(items) != 1 || items[0].Product == nil || items[0].Product.Name != "T-Shirt" {
			t.Errorf("unexpected items: %+v", items)
		}
	})

	t.Run("re-adding is a no-op", func(t *testing.T) {
		handler := newTestHandler()

		for i := 0; i < 2; i++ {
			req := authed(httptest.NewRequest(http.MethodPost, "/wishlist", strings.NewReader(`{"product_id":"tshirt"}`)))
			rec := httptest.NewRecorder()
			handler.HandleAdd(rec, req)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("expected status 204, got %d", rec.Code)
			}
		}

		req := authed(httptest.NewRequest(http.MethodGet, "/wishlist", nil))
		rec := httptest.NewRecorder()
		handler.HandleList(rec, req)

		var items []Item
		if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(items) != 1 {
			t.Errorf("expected a single item, got %d", len(items))
		}
	})

	t.Run("unknown product is 404", func(t *testing.T) {
		handler := newTestHandler()

		req := authed(httptest.NewRequest(http.MethodPost, "/wishlist", strings.NewReader(`{"product_id":"nope"}`)))
		rec := httptest.NewRecorder()
		handler.HandleAdd(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("remove", func(t *testing.T) {
		handler := newTestHandler()

		req := authed(httptest.NewRequest(http.MethodPost, "/wishlist", strings.NewReader(`{"product_id":"tshirt"}`)))
		handler.HandleAdd(httptest.NewRecorder(), req)

		req = authed(httptest.NewRequest(http.MethodDelete, "/wishlist/tshirt", nil))
		req.SetPathValue("productId", "tshirt")
		rec := httptest.NewRecorder()
		handler.HandleRemove(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}

		req = authed(httptest.NewRequest(http.MethodGet, "/wishlist", nil))
		rec = httptest.NewRecorder()
		handler.HandleList(rec, req)

		if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
			t.Errorf("expected empty wishlist, got %s", body)
		}
	})
}
