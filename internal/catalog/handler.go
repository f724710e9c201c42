package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/velora-shop/storefront/internal/domain"
)

type Handler struct {
	reader Reader
	logger *slog.Logger
}

func NewHandler(reader Reader, logger *slog.Logger) *Handler {
	return &Handler{
		reader: reader,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{
		CategoryID: r.URL.Query().Get("category"),
		Gender:     r.URL.Query().Get("gender"),
		Search:     r.URL.Query().Get("search"),
	}

	products, err := h.reader.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if products == nil {
		products = []domain.Product{}
	}

	h.logger.Info("products listed", "count", len(products))
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.reader.GetProduct(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
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
