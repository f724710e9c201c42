package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/velora-shop/storefront/internal/auth"
	"github.com/velora-shop/storefront/internal/domain"
)

// Reconciler applies a confirmed payment session; implemented by the orders
// package.
type Reconciler interface {
	Reconcile(ctx context.Context, sessionID string) (*domain.Order, error)
}

type Handler struct {
	orchestrator *Orchestrator
	reconciler   Reconciler
	webhookKey   string
	logger       *slog.Logger
}

func NewHandler(orchestrator *Orchestrator, reconciler Reconciler, webhookKey string, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		reconciler:   reconciler,
		webhookKey:   webhookKey,
		logger:       logger,
	}
}

type beginRequest struct {
	PromoCode string `json:"promo_code,omitempty"`
}

type beginResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	TotalAmount int64  `json:"total_amount"`
}

func (h *Handler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req beginRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := h.orchestrator.Begin(r.Context(), user, req.PromoCode)
	if err != nil {
		h.handleBeginError(w, err, user.ID)
		return
	}

	h.writeJSON(w, http.StatusOK, beginResponse{
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		TotalAmount: session.TotalAmount,
	})
}

func (h *Handler) handleBeginError(w http.ResponseWriter, err error, userID string) {
	var (
		stockErr   *StockUnavailableError
		variantErr *VariantUnavailableError
		paymentErr *PaymentSessionError
	)

	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		h.writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, ErrEmptyCart):
		h.writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, ErrCheckoutInFlight):
		h.writeError(w, http.StatusConflict, "checkout already in progress")
	case errors.As(err, &stockErr):
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"error": "some items are out of stock",
			"lines": stockErr.Lines,
		})
	case errors.As(err, &variantErr):
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"error": "some items are no longer available",
			"lines": variantErr.Lines,
		})
	case errors.As(err, &paymentErr):
		// Retryable: the cart is intact, the user can try again.
		h.logger.Error("payment session creation failed", "error", err, "user_id", userID)
		h.writeError(w, http.StatusBadGateway, "payment service unavailable, please retry")
	default:
		h.logger.Error("checkout failed", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// HandleConfirm is the success-redirect target: the provider sends the user
// back here with the session in the query string. The authoritative signal is
// the webhook; both funnel into the same idempotent reconciliation.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, "missing session_id")
		return
	}

	h.reconcile(w, r, sessionID)
}

type webhookEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// HandleWebhook receives provider notifications. There is no storefront user
// on these requests; the shared webhook key authenticates the provider
// instead. Completed payments reconcile, failed ones mark the session failed
// with the cart left intact.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookKey == "" || r.Header.Get("Authorization") != "Bearer "+h.webhookKey {
		h.writeError(w, http.StatusUnauthorized, "invalid webhook credentials")
		return
	}

	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil || event.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	switch event.Type {
	case "payment.completed":
		h.reconcile(w, r, event.SessionID)
	case "payment.failed":
		if err := h.orchestrator.Fail(r.Context(), event.SessionID); err != nil {
			h.writeSessionError(w, err, event.SessionID)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		// Acknowledge event types we do not handle so the provider stops
		// redelivering them.
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request, sessionID string) {
	order, err := h.reconciler.Reconcile(r.Context(), sessionID)
	if err != nil {
		h.writeSessionError(w, err, sessionID)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) writeSessionError(w http.ResponseWriter, err error, sessionID string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, "checkout session not found")
	case errors.Is(err, ErrSessionNotPending):
		h.writeError(w, http.StatusConflict, "checkout session is not payable")
	default:
		h.logger.Error("failed to settle checkout session", "error", err, "session_id", sessionID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	if err := h.orchestrator.Cancel(r.Context(), user.ID, sessionID); err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			h.writeError(w, http.StatusNotFound, "checkout session not found")
		case errors.Is(err, ErrSessionNotPending):
			h.writeError(w, http.StatusConflict, "checkout session already settled")
		default:
			h.logger.Error("failed to cancel checkout", "error", err, "session_id", sessionID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

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
