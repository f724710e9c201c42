package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/velora-shop/storefront/internal/auth"
	"github.com/velora-shop/storefront/internal/cart"
	"github.com/velora-shop/storefront/internal/catalog"
	"github.com/velora-shop/storefront/internal/domain"
	"github.com/velora-shop/storefront/internal/pricing"
)

type fakePaymentClient struct {
	mu       sync.Mutex
	err      error
	sequence int
	requests []SessionRequest
}

func (f *fakePaymentClient) CreateSession(_ context.Context, req SessionRequest) (*PaymentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	f.sequence++
	id := fmt.Sprintf("cs_%d", f.sequence)
	return &PaymentSession{ID: id, URL: "https://pay.example.com/" + id}, nil
}

func (f *fakePaymentClient) lastRequest() SessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// blockingPaymentClient parks inside CreateSession until released, so tests
// can hold a checkout mid-flight. Later calls pass straight through once the
// release channel is closed.
type blockingPaymentClient struct {
	entered   chan struct{}
	release   chan struct{}
	enterOnce sync.Once
}

func (b *blockingPaymentClient) CreateSession(_ context.Context, _ SessionRequest) (*PaymentSession, error) {
	b.enterOnce.Do(func() { close(b.entered) })
	<-b.release
	return &PaymentSession{ID: "cs_blocked", URL: "https://pay.example.com/cs_blocked"}, nil
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	carts        *cart.Store
	catalog      *catalog.StaticReader
	payments     *fakePaymentClient
	sessions     *MemorySessionRepository
}

func newFixture(payments PaymentClient) orchestratorFixture {
	now := time.Now().UTC()
	reader := catalog.NewStaticReader(
		domain.Product{
			ID:            "tshirt",
			Name:          "T-Shirt",
			Price:         2500,
			StockQuantity: 10,
			Sizes:         []string{"S", "M", "L"},
			Colors:        []string{"Black", "White"},
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		domain.Product{
			ID:            "jeans",
			Name:          "Jeans",
			Price:         2000,
			StockQuantity: 5,
			Sizes:         []string{"30", "32"},
			Colors:        []string{"Blue"},
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	)

	fake, _ := payments.(*fakePaymentClient)
	carts := cart.NewStore(cart.NewMemoryRepository(), reader)
	sessions := NewMemorySessionRepository()

	orchestrator := NewOrchestrator(
		carts,
		reader,
		pricing.NewStaticResolver(),
		payments,
		sessions,
		"http://localhost:8080/checkout/confirm",
		"http://localhost:8080/cart",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	return orchestratorFixture{
		orchestrator: orchestrator,
		carts:        carts,
		catalog:      reader,
		payments:     fake,
		sessions:     sessions,
	}
}

var testUser = auth.User{ID: "user-1", Email: "user@example.com"}

func TestOrchestratorBegin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending session and leaves the cart intact", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 2, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := f.carts.AddItem(ctx, testUser.ID, "jeans", 1, "32", "Blue"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		session, err := f.orchestrator.Begin(ctx, testUser, "SAVE10")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if session.Status != domain.CheckoutStatusPending {
			t.Errorf("expected pending session, got %s", session.Status)
		}
		if session.RedirectURL == "" {
			t.Error("expected a redirect URL")
		}
		// subtotal 7000, 10% off, shipping 9900, 18% tax on 6300
		if session.TotalAmount != 17334 {
			t.Errorf("expected total 17334, got %d", session.TotalAmount)
		}

		stored, err := f.sessions.GetSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored == nil || len(stored.Lines) != 2 {
			t.Fatalf("expected persisted session with 2 lines, got %+v", stored)
		}

		c, err := f.carts.Snapshot(ctx, testUser.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(c.Items) != 2 {
			t.Errorf("cart must survive checkout start, got %d lines", len(c.Items))
		}
	})

	t.Run("session request carries variant descriptions and adjustments", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 2, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := f.orchestrator.Begin(ctx, testUser, "SAVE10"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		req := f.payments.lastRequest()
		if req.CustomerEmail != testUser.Email {
			t.Errorf("expected customer email %q, got %q", testUser.Email, req.CustomerEmail)
		}
		if req.LineItems[0].Description != "Size: M, Color: Black" {
			t.Errorf("unexpected description %q", req.LineItems[0].Description)
		}

		// product line + discount + shipping + tax
		if len(req.LineItems) != 4 {
			t.Fatalf("expected 4 session line items, got %d", len(req.LineItems))
		}
		var sum int64
		for _, item := range req.LineItems {
			sum += item.UnitAmount * int64(item.Quantity)
		}
		if sum != 15210 {
			t.Errorf("expected session items to sum to the quoted total, got %d", sum)
		}
	})

	t.Run("requires an authenticated user", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})

		if _, err := f.orchestrator.Begin(ctx, auth.User{}, ""); !errors.Is(err, ErrAuthenticationRequired) {
			t.Errorf("expected ErrAuthenticationRequired, got %v", err)
		}
	})

	t.Run("rejects an empty cart", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})

		if _, err := f.orchestrator.Begin(ctx, testUser, ""); !errors.Is(err, ErrEmptyCart) {
			t.Errorf("expected ErrEmptyCart, got %v", err)
		}
	})

	t.Run("unknown promo code is ignored", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 1, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		session, err := f.orchestrator.Begin(ctx, testUser, "BOGUS")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// subtotal 2500, no discount, shipping 9900, tax 450
		if session.TotalAmount != 12850 {
			t.Errorf("expected undiscounted total 12850, got %d", session.TotalAmount)
		}
	})

	t.Run("reports all out of stock lines", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 1, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := f.carts.AddItem(ctx, testUser.ID, "jeans", 1, "32", "Blue"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f.catalog.SetStock("tshirt", 0)
		f.catalog.SetStock("jeans", 0)

		_, err := f.orchestrator.Begin(ctx, testUser, "")
		var stockErr *StockUnavailableError
		if !errors.As(err, &stockErr) {
			t.Fatalf("expected StockUnavailableError, got %v", err)
		}
		if len(stockErr.Lines) != 2 {
			t.Errorf("expected both lines reported, got %d", len(stockErr.Lines))
		}

		c, err := f.carts.Snapshot(ctx, testUser.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(c.Items) != 2 {
			t.Errorf("cart must survive validation failure, got %d lines", len(c.Items))
		}
	})

	t.Run("partial stock still fails the whole checkout", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "jeans", 3, "32", "Blue"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f.catalog.SetStock("jeans", 2)

		_, err := f.orchestrator.Begin(ctx, testUser, "")
		var stockErr *StockUnavailableError
		if !errors.As(err, &stockErr) {
			t.Fatalf("expected StockUnavailableError, got %v", err)
		}
		if stockErr.Lines[0].Requested != 3 || stockErr.Lines[0].Available != 2 {
			t.Errorf("unexpected issue detail: %+v", stockErr.Lines[0])
		}
	})

	t.Run("discontinued variant beats stock in the report", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 1, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := f.carts.AddItem(ctx, testUser.ID, "jeans", 1, "32", "Blue"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// tshirt variant disappears and jeans stock drains at the same time.
		f.catalog.SetColors("tshirt", []string{"White"})
		f.catalog.SetStock("jeans", 0)

		_, err := f.orchestrator.Begin(ctx, testUser, "")
		var variantErr *VariantUnavailableError
		if !errors.As(err, &variantErr) {
			t.Fatalf("expected VariantUnavailableError, got %v", err)
		}
		if len(variantErr.Lines) != 1 || variantErr.Lines[0].ProductID != "tshirt" {
			t.Errorf("unexpected issues: %+v", variantErr.Lines)
		}
	})

	t.Run("payment failure preserves the cart and persists nothing", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{err: errors.New("provider down")})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 1, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := f.orchestrator.Begin(ctx, testUser, "")
		var paymentErr *PaymentSessionError
		if !errors.As(err, &paymentErr) {
			t.Fatalf("expected PaymentSessionError, got %v", err)
		}

		c, err := f.carts.Snapshot(ctx, testUser.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(c.Items) != 1 {
			t.Errorf("cart must survive payment failure, got %d lines", len(c.Items))
		}

		// A retry after the provider recovers succeeds.
		f.payments.err = nil
		if _, err := f.orchestrator.Begin(ctx, testUser, ""); err != nil {
			t.Errorf("expected retry to succeed, got %v", err)
		}
	})

	t.Run("second checkout while one is validating is rejected", func(t *testing.T) {
		blocking := &blockingPaymentClient{
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		f := newFixture(blocking)
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 1, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		done := make(chan error, 1)
		go func() {
			_, err := f.orchestrator.Begin(ctx, testUser, "")
			done <- err
		}()
		<-blocking.entered

		if _, err := f.orchestrator.Begin(ctx, testUser, ""); !errors.Is(err, ErrCheckoutInFlight) {
			t.Errorf("expected ErrCheckoutInFlight, got %v", err)
		}

		close(blocking.release)
		if err := <-done; err != nil {
			t.Errorf("first checkout should have completed, got %v", err)
		}

		// The guard is released once the first checkout finishes.
		if _, err := f.orchestrator.Begin(ctx, testUser, ""); errors.Is(err, ErrCheckoutInFlight) {
			t.Error("expected guard released after completion")
		}
	})
}

func TestOrchestratorCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels a pending session without touching the cart", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 1, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		session, err := f.orchestrator.Begin(ctx, testUser, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := f.orchestrator.Cancel(ctx, testUser.ID, session.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		stored, err := f.sessions.GetSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored.Status != domain.CheckoutStatusCancelled {
			t.Errorf("expected cancelled session, got %s", stored.Status)
		}

		c, err := f.carts.Snapshot(ctx, testUser.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(c.Items) != 1 {
			t.Errorf("cart must survive cancellation, got %d lines", len(c.Items))
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})

		if err := f.orchestrator.Cancel(ctx, testUser.ID, "nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("cannot cancel another user's session", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 1, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		session, err := f.orchestrator.Begin(ctx, testUser, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := f.orchestrator.Cancel(ctx, "user-2", session.ID); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound for foreign session, got %v", err)
		}
	})

	t.Run("cannot cancel twice", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 1, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		session, err := f.orchestrator.Begin(ctx, testUser, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := f.orchestrator.Cancel(ctx, testUser.ID, session.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := f.orchestrator.Cancel(ctx, testUser.ID, session.ID); !errors.Is(err, ErrSessionNotPending) {
			t.Errorf("expected ErrSessionNotPending, got %v", err)
		}
	})
}

func TestOrchestratorFail(t *testing.T) {
	ctx := context.Background()

	t.Run("marks a pending session failed and keeps the cart", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 1, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		session, err := f.orchestrator.Begin(ctx, testUser, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := f.orchestrator.Fail(ctx, session.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		stored, err := f.sessions.GetSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored.Status != domain.CheckoutStatusFailed {
			t.Errorf("expected failed session, got %s", stored.Status)
		}

		c, err := f.carts.Snapshot(ctx, testUser.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(c.Items) != 1 {
			t.Errorf("cart must survive a failed payment, got %d lines", len(c.Items))
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})

		if err := f.orchestrator.Fail(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("settled sessions do not fail", func(t *testing.T) {
		f := newFixture(&fakePaymentClient{})
		if _, err := f.carts.AddItem(ctx, testUser.ID, "tshirt", 1, "M", "Black"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		session, err := f.orchestrator.Begin(ctx, testUser, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := f.orchestrator.Cancel(ctx, testUser.ID, session.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := f.orchestrator.Fail(ctx, session.ID); !errors.Is(err, ErrSessionNotPending) {
			t.Errorf("expected ErrSessionNotPending, got %v", err)
		}
	})
}
