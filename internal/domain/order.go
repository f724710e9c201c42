package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderItem carries the unit price at the time the order was placed. Later
// catalog price edits never touch historical orders.
type OrderItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	UnitPrice int64  `json:"unit_price"`
}

type Order struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	CheckoutSessionID string      `json:"checkout_session_id"`
	Status            OrderStatus `json:"status"`
	TotalAmount       int64       `json:"total_amount"`
	Items             []OrderItem `json:"items"`
	CreatedAt         time.Time   `json:"created_at"`
}
