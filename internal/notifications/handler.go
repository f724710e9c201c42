package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/velora-shop/storefront/internal/domain"
)

// Handler consumes order.placed events and asks the email collaborator to
// send the confirmation. Delivery is at-least-once; the email service is
// expected to dedupe on order id.
type Handler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
	}
}

func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	h.logger.Info("processing order placed event", "order_id", event.OrderID, "user_id", event.UserID)

	if event.UserEmail == "" {
		h.logger.Warn("order has no email address, skipping confirmation", "order_id", event.OrderID)
		return nil
	}

	if err := h.sendConfirmationEmail(ctx, event); err != nil {
		h.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send confirmation email: %w", err)
	}

	h.logger.Info("order confirmation sent", "order_id", event.OrderID)
	return nil
}

func (h *Handler) sendConfirmationEmail(ctx context.Context, event domain.OrderPlacedEvent) error {
	body := map[string]string{
		"to":      event.UserEmail,
		"subject": "Order Confirmation: " + event.OrderID,
		"body": fmt.Sprintf("Thank you for your purchase! Your order %s with %d items has been confirmed and will be processed shortly.",
			event.OrderID, len(event.Items)),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
