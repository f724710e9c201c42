package orders

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/velora-shop/storefront/internal/auth"
)

type Handler struct {
	repo   Repository
	logger *slog.Logger
}

func NewHandler(repo Repository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	orders, err := h.repo.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", user.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "user_id", user.ID, "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// An order belonging to someone else is indistinguishable from a
	// missing one.
	if order == nil || (order.UserID != user.ID && !user.Admin) {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// HandleAdminList returns every order. Mounted behind auth.RequireAdmin.
func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list all orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("all orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
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
