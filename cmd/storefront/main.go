package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/velora-shop/storefront/internal/auth"
	"github.com/velora-shop/storefront/internal/cart"
	"github.com/velora-shop/storefront/internal/catalog"
	"github.com/velora-shop/storefront/internal/checkout"
	"github.com/velora-shop/storefront/internal/messaging"
	"github.com/velora-shop/storefront/internal/orders"
	"github.com/velora-shop/storefront/internal/pricing"
	"github.com/velora-shop/storefront/internal/telemetry"
	"github.com/velora-shop/storefront/internal/wishlist"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	metricsHandler, shutdownTelemetry, err := telemetry.Init(ctx, "storefront", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTelemetry(ctx) }()

	var (
		catalogReader catalog.Reader
		cartRepo      cart.Repository
		sessionRepo   checkout.SessionRepository
		orderRepo     orders.Repository
		wishlistRepo  wishlist.Repository
	)

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL != "" {
		db, err := telemetry.OpenDB(postgresURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		catalogReader = catalog.NewRepository(db)
		cartRepo = cart.NewPostgresRepository(db)
		sessionRepo = checkout.NewPostgresSessionRepository(db)
		orderRepo = orders.NewPostgresRepository(db)
		wishlistRepo = wishlist.NewPostgresRepository(db)
	} else {
		// Demo mode: everything in memory, seeded with the sample catalog.
		logger.Warn("POSTGRES_URL not set, running with in-memory storage")
		memCarts := cart.NewMemoryRepository()
		memSessions := checkout.NewMemorySessionRepository()

		catalogReader = catalog.NewStaticReader(catalog.SampleProducts()...)
		cartRepo = memCarts
		sessionRepo = memSessions
		orderRepo = orders.NewMemoryRepository(memCarts, memSessions)
		wishlistRepo = wishlist.NewMemoryRepository()
	}

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer = messaging.NewProducer(brokers, "order.placed")
		defer func() { _ = producer.Close() }()
	}

	paymentAPIURL := os.Getenv("PAYMENT_API_URL")
	if paymentAPIURL == "" {
		logger.Error("PAYMENT_API_URL environment variable is required")
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	payments := checkout.NewHostedPaymentClient(paymentAPIURL, os.Getenv("PAYMENT_API_KEY"), httpClient)

	webhookKey := os.Getenv("PAYMENT_WEBHOOK_KEY")
	if webhookKey == "" {
		logger.Warn("PAYMENT_WEBHOOK_KEY not set, provider webhooks will be rejected")
	}

	successURL := envOr("CHECKOUT_SUCCESS_URL", "http://localhost:8080/checkout/confirm")
	cancelURL := envOr("CHECKOUT_CANCEL_URL", "http://localhost:8080/cart")

	promos := pricing.NewStaticResolver()
	cartStore := cart.NewStore(cartRepo, catalogReader)

	orchestrator := checkout.NewOrchestrator(cartStore, catalogReader, promos, payments, sessionRepo, successURL, cancelURL, logger)
	reconciler := orders.NewReconciler(orderRepo, sessionRepo, producer, logger)

	catalogHandler := catalog.NewHandler(catalogReader, logger)
	cartHandler := cart.NewHandler(cartStore, catalogReader, promos, logger)
	checkoutHandler := checkout.NewHandler(orchestrator, reconciler, webhookKey, logger)
	orderHandler := orders.NewHandler(orderRepo, logger)
	wishlistHandler := wishlist.NewHandler(wishlistRepo, catalogReader, logger)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleList))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGet))

	mux.Handle("GET /cart", auth.RequireUser(telemetry.WithHTTPRoute(cartHandler.HandleGet)))
	mux.Handle("POST /cart/items", auth.RequireUser(telemetry.WithHTTPRoute(cartHandler.HandleAddItem)))
	mux.Handle("PATCH /cart/items/{lineId}", auth.RequireUser(telemetry.WithHTTPRoute(cartHandler.HandleUpdateQuantity)))
	mux.Handle("DELETE /cart/items/{lineId}", auth.RequireUser(telemetry.WithHTTPRoute(cartHandler.HandleRemoveItem)))
	mux.Handle("DELETE /cart", auth.RequireUser(telemetry.WithHTTPRoute(cartHandler.HandleClear)))

	mux.Handle("POST /checkout", auth.RequireUser(telemetry.WithHTTPRoute(checkoutHandler.HandleBegin)))
	mux.Handle("GET /checkout/confirm", auth.RequireUser(telemetry.WithHTTPRoute(checkoutHandler.HandleConfirm)))
	mux.HandleFunc("POST /checkout/confirm", telemetry.WithHTTPRoute(checkoutHandler.HandleWebhook))
	mux.Handle("POST /checkout/{sessionId}/cancel", auth.RequireUser(telemetry.WithHTTPRoute(checkoutHandler.HandleCancel)))

	mux.Handle("GET /orders", auth.RequireUser(telemetry.WithHTTPRoute(orderHandler.HandleList)))
	mux.Handle("GET /orders/{id}", auth.RequireUser(telemetry.WithHTTPRoute(orderHandler.HandleGet)))
	mux.Handle("GET /admin/orders", auth.RequireAdmin(telemetry.WithHTTPRoute(orderHandler.HandleAdminList)))

	mux.Handle("GET /wishlist", auth.RequireUser(telemetry.WithHTTPRoute(wishlistHandler.HandleList)))
	mux.Handle("POST /wishlist", auth.RequireUser(telemetry.WithHTTPRoute(wishlistHandler.HandleAdd)))
	mux.Handle("DELETE /wishlist/{productId}", auth.RequireUser(telemetry.WithHTTPRoute(wishlistHandler.HandleRemove)))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "storefront",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting storefront service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
