package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthenticationRequired aborts checkout for anonymous callers; the
	// UI turns it into a sign-in redirect.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrEmptyCart means there is nothing to check out.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCheckoutInFlight rejects a second validation cycle while one is
	// already running for the same user.
	ErrCheckoutInFlight = errors.New("checkout already in progress")
	// ErrSessionNotFound means the session id is unknown.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrSessionNotPending means the session already reached a terminal
	// state that cannot accept this transition.
	ErrSessionNotPending = errors.New("checkout session is not pending")
)

// LineIssue names a cart line that failed validation, with enough detail for
// the user to fix it.
type LineIssue struct {
	LineID    string `json:"line_id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// StockUnavailableError reports every line whose live stock no longer covers
// the requested quantity. Checkout halts; nothing is dropped silently.
type StockUnavailableError struct {
	Lines []LineIssue
}

func (e *StockUnavailableError) Error() string {
	ids := make([]string, 0, len(e.Lines))
	for _, line := range e.Lines {
		ids = append(ids, line.ProductID)
	}
	return fmt.Sprintf("insufficient stock for: %s", strings.Join(ids, ", "))
}

// VariantUnavailableError reports lines whose product or variant no longer
// exists in the catalog.
type VariantUnavailableError struct {
	Lines []LineIssue
}

func (e *VariantUnavailableError) Error() string {
	ids := make([]string, 0, len(e.Lines))
	for _, line := range e.Lines {
		ids = append(ids, line.ProductID)
	}
	return fmt.Sprintf("variant no longer available for: %s", strings.Join(ids, ", "))
}

// PaymentSessionError wraps a failure to create the provider session. It is
// retryable: the cart is untouched and the user may try again.
type PaymentSessionError struct {
	Cause error
}

func (e *PaymentSessionError) Error() string {
	return fmt.Sprintf("create payment session: %v", e.Cause)
}

func (e *PaymentSessionError) Unwrap() error {
	return e.Cause
}
