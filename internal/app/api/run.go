package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	orderobs "github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/observability"
	orderworkflows "github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/workflows"
	orderapp "github.com/Apurer/go-gin-orders-server/internal/domains/orders/application"
	orderports "github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-orders-server/internal/platform/auth"
	platformobservability "github.com/Apurer/go-gin-orders-server/internal/platform/observability"
)

const serviceName = "orders-api"

// Run boots the orders HTTP API with observability, stores, and checkout wired.
// It returns when ctx is cancelled and the server has drained.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	verifier, err := auth.NewVerifier(cfg.JWTSecret, auth.WithIssuer(cfg.JWTIssuer))
	if err != nil {
		return fmt.Errorf("AUTH_JWT_SECRET: %w", err)
	}

	stores, closeStores, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	coreService := orderapp.NewService(stores.Documents,
		orderapp.WithTransitionPolicy(cfg.StatusPolicy),
		orderapp.WithLocation(cfg.StatsLocation),
	)
	if err := coreService.Start(ctx); err != nil {
		return fmt.Errorf("start all-orders view: %w", err)
	}
	defer coreService.Close()
	orderService := orderobs.New(coreService,
		orderobs.WithLogger(logger),
		orderobs.WithTracer(instruments.Tracer("internal.orders.application")),
		orderobs.WithMeter(instruments.Meter("internal.orders.application")),
	)

	checkout := orderapp.NewCheckout(orderService, orderapp.WithIdempotencyStore(stores.Idempotency))
	var orchestrator orderports.CheckoutOrchestrator = orderworkflows.NewInlineCheckout(checkout)
	if !cfg.DurableCheckout() {
		logger.Info("running checkout inline", slog.String("store", string(cfg.Store)), slog.Bool("temporalDisabled", cfg.TemporalDisabled))
	} else if temporalClient, err := DialTemporal(ctx, cfg, instruments, "temporal-client"); err != nil {
		logger.Warn("Temporal workflows unavailable, running checkout inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		orchestrator = orderworkflows.NewTemporalCheckout(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	router := NewRouter(RouterDeps{
		ServiceName: serviceName,
		Orders:      orderService,
		Checkout:    orchestrator,
		Verifier:    verifier,
		Config:      cfg,
		Logger:      logger,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("orders API listening", slog.String("addr", server.Addr), slog.String("store", string(cfg.Store)))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("orders API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("orders API shutting down")
	return server.Shutdown(shutdownCtx)
}
