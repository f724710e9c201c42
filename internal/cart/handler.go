package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/velora-shop/storefront/internal/auth"
	"github.com/velora-shop/storefront/internal/catalog"
	"github.com/velora-shop/storefront/internal/domain"
	"github.com/velora-shop/storefront/internal/pricing"
)

type Handler struct {
	store   *Store
	catalog catalog.Reader
	promos  pricing.Resolver
	logger  *slog.Logger
}

func NewHandler(store *Store, catalog catalog.Reader, promos pricing.Resolver, logger *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		catalog: catalog,
		promos:  promos,
		logger:  logger,
	}
}

type cartView struct {
	domain.Cart
	ItemCount int               `json:"item_count"`
	Pricing   domain.PricedCart `json:"pricing"`
}

// HandleGet returns the cart with totals derived from current catalog prices,
// so the displayed total and the checkout total come from the same source.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	c, err := h.store.Snapshot(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "user_id", user.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var promo *domain.PromoCode
	if code := r.URL.Query().Get("promo"); code != "" {
		promo, err = h.promos.Resolve(r.Context(), code)
		if err != nil {
			h.logger.Error("failed to resolve promo code", "error", err, "code", code)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	lines, err := h.pricedLines(r, c)
	if err != nil {
		h.logger.Error("failed to price cart", "error", err, "user_id", user.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, cartView{
		Cart:      *c,
		ItemCount: c.ItemCount(),
		Pricing:   pricing.Quote(lines, promo),
	})
}

// pricedLines reads the current catalog price for every line. A product that
// has disappeared from the catalog falls back to the add-time snapshot so the
// cart still renders; checkout applies the strict rules.
func (h *Handler) pricedLines(r *http.Request, c *domain.Cart) ([]domain.PricedLine, error) {
	var lines []domain.PricedLine
	for _, item := range c.Items {
		line := domain.PricedLine{
			LineID:    item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
			UnitPrice: item.UnitPrice,
		}

		product, err := h.catalog.GetProduct(r.Context(), item.ProductID)
		if err != nil {
			return nil, err
		}
		if product != nil {
			line.Name = product.Name
			line.UnitPrice = product.Price
		}

		lines = append(lines, line)
	}
	return lines, nil
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	c, err := h.store.AddItem(r.Context(), user.ID, req.ProductID, req.Quantity, req.Size, req.Color)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidQuantity):
			h.writeError(w, http.StatusBadRequest, "quantity must be at least 1")
		case errors.Is(err, ErrProductNotFound):
			h.writeError(w, http.StatusNotFound, "product not found")
		default:
			h.logger.Error("failed to add cart item", "error", err, "user_id", user.ID, "product_id", req.ProductID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.logger.Info("cart item added", "user_id", user.ID, "product_id", req.ProductID, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusOK, c)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	lineID := r.PathValue("lineId")
	if lineID == "" {
		h.writeError(w, http.StatusBadRequest, "missing line id")
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.store.UpdateQuantity(r.Context(), user.ID, lineID, req.Quantity)
	if err != nil {
		if errors.Is(err, ErrLineNotFound) {
			h.writeError(w, http.StatusNotFound, "cart line not found")
			return
		}
		h.logger.Error("failed to update cart quantity", "error", err, "user_id", user.ID, "line_id", lineID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart quantity updated", "user_id", user.ID, "line_id", lineID, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	lineID := r.PathValue("lineId")
	if lineID == "" {
		h.writeError(w, http.StatusBadRequest, "missing line id")
		return
	}

	c, err := h.store.RemoveItem(r.Context(), user.ID, lineID)
	if err != nil {
		h.logger.Error("failed to remove cart item", "error", err, "user_id", user.ID, "line_id", lineID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart item removed", "user_id", user.ID, "line_id", lineID)
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	if err := h.store.Clear(r.Context(), user.ID); err != nil {
		h.logger.Error("failed to clear cart", "error", err, "user_id", user.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart cleared", "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
