package wishlist

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/velora-shop/storefront/internal/auth"
	"github.com/velora-shop/storefront/internal/catalog"
)

type Handler struct {
	repo    Repository
	catalog catalog.Reader
	logger  *slog.Logger
}

func NewHandler(repo Repository, catalogReader catalog.Reader, logger *slog.Logger) *Handler {
	return &Handler{
		repo:    repo,
		catalog: catalogReader,
		logger:  logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	items, err := h.repo.List(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to list wishlist", "error", err, "user_id", user.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if items == nil {
		items = []Item{}
	}

	for i := range items {
		product, err := h.catalog.GetProduct(r.Context(), items[i].ProductID)
		if err != nil {
			h.logger.Error("failed to resolve wishlist product", "error", err, "product_id", items[i].ProductID)
			continue
		}
		items[i].Product = product
	}

	h.writeJSON(w, http.StatusOK, items)
}

type addRequest struct {
	ProductID string `json:"product_id"`
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		h.logger.Error("failed to look up product", "error", err, "product_id", req.ProductID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := h.repo.Add(r.Context(), user.ID, req.ProductID); err != nil {
		h.logger.Error("failed to add wishlist item", "error", err, "user_id", user.ID, "product_id", req.ProductID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("wishlist item added", "user_id", user.ID, "product_id", req.ProductID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	if err := h.repo.Remove(r.Context(), user.ID, productID); err != nil {
		h.logger.Error("failed to remove wishlist item", "error", err, "user_id", user.ID, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("wishlist item removed", "user_id", user.ID, "product_id", productID)
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
