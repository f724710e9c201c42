package domain

import "time"

// OrderPlacedEvent is published after a checkout session has been reconciled
// into a durable order. Consumed by the notification worker.
type OrderPlacedEvent struct {
	OrderID           string      `json:"order_id"`
	CheckoutSessionID string      `json:"checkout_session_id"`
	UserID            string      `json:"user_id"`
	UserEmail         string      `json:"user_email,omitempty"`
	TotalAmount       int64       `json:"total_amount"`
	Items             []OrderItem `json:"items"`
	Timestamp         time.Time   `json:"timestamp"`
}
