package domain

import "time"

type CheckoutStatus string

const (
	CheckoutStatusPending   CheckoutStatus = "pending"
	CheckoutStatusCompleted CheckoutStatus = "completed"
	CheckoutStatusCancelled CheckoutStatus = "cancelled"
	CheckoutStatusFailed    CheckoutStatus = "failed"
)

func (s CheckoutStatus) Terminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusCancelled || s == CheckoutStatusFailed
}

// CheckoutSession is the persisted snapshot of a validated cart at the moment
// payment was requested. The reconciler builds the order from this snapshot,
// never from the live cart, so mid-payment cart edits cannot leak into an
// order.
type CheckoutSession struct {
	ID          string         `json:"id"` // the provider's opaque session id
	UserID      string         `json:"user_id"`
	UserEmail   string         `json:"user_email,omitempty"`
	Status      CheckoutStatus `json:"status"`
	TotalAmount int64          `json:"total_amount"`
	Lines       []PricedLine   `json:"lines"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
