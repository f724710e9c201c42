package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/velora-shop/storefront/internal/auth"
	"github.com/velora-shop/storefront/internal/cart"
	"github.com/velora-shop/storefront/internal/catalog"
	"github.com/velora-shop/storefront/internal/domain"
	"github.com/velora-shop/storefront/internal/pricing"
)

var meter = otel.Meter("checkout")

// Orchestrator drives a checkout attempt from "proceed to checkout" to the
// hand-off into the provider's hosted payment page.
//
// Per attempt: Idle -> Validating -> AwaitingPayment -> terminal. Validation
// always re-reads price and stock from the live catalog; whatever the client
// holds is advisory. The cart is never touched on any path here - it stays
// intact until the reconciler confirms payment.
type Orchestrator struct {
	carts    *cart.Store
	catalog  catalog.Reader
	promos   pricing.Resolver
	payments PaymentClient
	sessions SessionRepository
	logger   *slog.Logger

	successURL string
	cancelURL  string

	mu       sync.Mutex
	inFlight map[string]bool

	sessionsStarted  metric.Int64Counter
	validateDuration metric.Float64Histogram
}

func NewOrchestrator(
	carts *cart.Store,
	catalogReader catalog.Reader,
	promos pricing.Resolver,
	payments PaymentClient,
	sessions SessionRepository,
	successURL, cancelURL string,
	logger *slog.Logger,
) *Orchestrator {
	sessionsStarted, _ := meter.Int64Counter("checkout.sessions.started")
	validateDuration, _ := meter.Float64Histogram("checkout.validation.duration",
		metric.WithUnit("s"))

	return &Orchestrator{
		carts:            carts,
		catalog:          catalogReader,
		promos:           promos,
		payments:         payments,
		sessions:         sessions,
		successURL:       successURL,
		cancelURL:        cancelURL,
		logger:           logger,
		inFlight:         make(map[string]bool),
		sessionsStarted:  sessionsStarted,
		validateDuration: validateDuration,
	}
}

// Begin validates the user's cart against the live catalog and requests a
// payment session. On success the session snapshot is persisted as pending
// and the provider redirect URL is returned. A second Begin for the same
// user while one is validating fails with ErrCheckoutInFlight, so double
// clicks cannot create two provider sessions.
func (o *Orchestrator) Begin(ctx context.Context, user auth.User, promoCode string) (*domain.CheckoutSession, error) {
	if user.ID == "" {
		return nil, ErrAuthenticationRequired
	}

	o.mu.Lock()
	if o.inFlight[user.ID] {
		o.mu.Unlock()
		return nil, ErrCheckoutInFlight
	}
	o.inFlight[user.ID] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inFlight, user.ID)
		o.mu.Unlock()
	}()

	c, err := o.carts.Snapshot(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	start := time.Now()
	lines, err := o.validate(ctx, c)
	o.validateDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	var promo *domain.PromoCode
	if promoCode != "" {
		promo, err = o.promos.Resolve(ctx, promoCode)
		if err != nil {
			return nil, fmt.Errorf("resolve promo code: %w", err)
		}
	}

	priced := pricing.Quote(lines, promo)

	session, err := o.payments.CreateSession(ctx, o.sessionRequest(user, priced))
	if err != nil {
		return nil, &PaymentSessionError{Cause: err}
	}

	checkoutSession := &domain.CheckoutSession{
		ID:          session.ID,
		UserID:      user.ID,
		UserEmail:   user.Email,
		Status:      domain.CheckoutStatusPending,
		TotalAmount: priced.Total,
		Lines:       priced.Lines,
		RedirectURL: session.URL,
		CreatedAt:   time.Now().UTC(),
	}

	if err := o.sessions.CreateSession(ctx, checkoutSession); err != nil {
		return nil, fmt.Errorf("persist checkout session: %w", err)
	}

	o.sessionsStarted.Add(ctx, 1)
	o.logger.Info("checkout session created",
		"session_id", session.ID, "user_id", user.ID, "total", priced.Total)

	return checkoutSession, nil
}

// validate re-reads every line's product from the catalog. All offending
// lines are collected so the user can fix them in one pass; variant problems
// take precedence over stock problems in the reported error.
func (o *Orchestrator) validate(ctx context.Context, c *domain.Cart) ([]domain.PricedLine, error) {
	var (
		lines      []domain.PricedLine
		outOfStock []LineIssue
		gone       []LineIssue
	)

	for _, item := range c.Items {
		product, err := o.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("look up product %s: %w", item.ProductID, err)
		}

		issue := LineIssue{
			LineID:    item.ID,
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Requested: item.Quantity,
		}

		if product == nil || !product.Active || !product.HasSize(item.Size) || !product.HasColor(item.Color) {
			if product != nil {
				issue.Name = product.Name
			}
			gone = append(gone, issue)
			continue
		}

		if product.StockQuantity < item.Quantity {
			issue.Name = product.Name
			issue.Available = product.StockQuantity
			outOfStock = append(outOfStock, issue)
			continue
		}

		lines = append(lines, domain.PricedLine{
			LineID:    item.ID,
			ProductID: item.ProductID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
			UnitPrice: product.Price,
		})
	}

	if len(gone) > 0 {
		return nil, &VariantUnavailableError{Lines: gone}
	}
	if len(outOfStock) > 0 {
		return nil, &StockUnavailableError{Lines: outOfStock}
	}

	return lines, nil
}

func (o *Orchestrator) sessionRequest(user auth.User, priced domain.PricedCart) SessionRequest {
	items := make([]SessionLineItem, 0, len(priced.Lines))
	for _, line := range priced.Lines {
		items = append(items, SessionLineItem{
			Name:        line.Name,
			Description: variantDescription(line.Size, line.Color),
			UnitAmount:  line.UnitPrice,
			Quantity:    line.Quantity,
		})
	}

	// Discount, shipping and tax travel as adjustment lines so the provider
	// charges exactly the quoted total.
	if priced.Discount > 0 {
		items = append(items, SessionLineItem{Name: "Discount", UnitAmount: -priced.Discount, Quantity: 1})
	}
	if priced.Shipping > 0 {
		items = append(items, SessionLineItem{Name: "Shipping", UnitAmount: priced.Shipping, Quantity: 1})
	}
	if priced.Tax > 0 {
		items = append(items, SessionLineItem{Name: "Tax", UnitAmount: priced.Tax, Quantity: 1})
	}

	return SessionRequest{
		CustomerEmail: user.Email,
		LineItems:     items,
		SuccessURL:    o.successURL,
		CancelURL:     o.cancelURL,
	}
}

func variantDescription(size, color string) string {
	switch {
	case size != "" && color != "":
		return fmt.Sprintf("Size: %s, Color: %s", size, color)
	case size != "":
		return "Size: " + size
	case color != "":
		return "Color: " + color
	default:
		return ""
	}
}

// Cancel marks a pending session cancelled. The cart is untouched, so an
// abandoned payment resumes exactly where the user left off.
func (o *Orchestrator) Cancel(ctx context.Context, userID, sessionID string) error {
	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load checkout session: %w", err)
	}
	if session == nil || session.UserID != userID {
		return ErrSessionNotFound
	}
	if session.Status.Terminal() {
		return ErrSessionNotPending
	}

	if err := o.sessions.UpdateStatus(ctx, sessionID, domain.CheckoutStatusCancelled); err != nil {
		return err
	}

	o.logger.Info("checkout session cancelled", "session_id", sessionID, "user_id", userID)
	return nil
}

// Fail marks a pending session failed after the provider reports the payment
// did not complete. The cart stays intact, so the user can check out again.
func (o *Orchestrator) Fail(ctx context.Context, sessionID string) error {
	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load checkout session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.Status.Terminal() {
		return ErrSessionNotPending
	}

	if err := o.sessions.UpdateStatus(ctx, sessionID, domain.CheckoutStatusFailed); err != nil {
		return err
	}

	o.logger.Info("checkout session failed",
		"session_id", sessionID, "user_id", session.UserID)
	return nil
}
