package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-orders-server/internal/app/api"
	orderobs "github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/observability"
	orderapp "github.com/Apurer/go-gin-orders-server/internal/domains/orders/application"
	orderactivities "github.com/Apurer/go-gin-orders-server/internal/durable/temporal/activities/orders"
	orderworkflows "github.com/Apurer/go-gin-orders-server/internal/durable/temporal/workflows/orders"
	platformobservability "github.com/Apurer/go-gin-orders-server/internal/platform/observability"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to read .env: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	const serviceName = "orders-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	if err := run(ctx, cfg, instruments); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}

func run(ctx context.Context, cfg api.Config, instruments *platformobservability.Instruments) error {
	logger := instruments.Logger
	if !cfg.DurableCheckout() {
		return fmt.Errorf("worker needs a shared order store and Temporal; got ORDER_STORE=%s TEMPORAL_DISABLED=%t", cfg.Store, cfg.TemporalDisabled)
	}
	stores, closeStores, err := api.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	coreService := orderapp.NewService(stores.Documents,
		orderapp.WithTransitionPolicy(cfg.StatusPolicy),
		orderapp.WithLocation(cfg.StatsLocation),
	)
	if err := coreService.Start(ctx); err != nil {
		return err
	}
	defer coreService.Close()
	orderService := orderobs.New(coreService,
		orderobs.WithLogger(logger),
		orderobs.WithTracer(instruments.Tracer("internal.orders.application")),
		orderobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	checkout := orderapp.NewCheckout(orderService, orderapp.WithIdempotencyStore(stores.Idempotency))
	acts := orderactivities.NewActivities(checkout)

	temporalClient, err := api.DialTemporal(ctx, cfg, instruments, "temporal-worker")
	if err != nil {
		return err
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.CheckoutTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.CheckoutWorkflow, workflow.RegisterOptions{Name: orderworkflows.CheckoutWorkflowName})
	w.RegisterActivityWithOptions(acts.CreateOrder, activity.RegisterOptions{Name: orderactivities.CreateOrderActivityName})
	w.RegisterActivityWithOptions(acts.RecordPayment, activity.RegisterOptions{Name: orderactivities.RecordPaymentActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.CheckoutTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	interrupt := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(interrupt)
	}()
	return w.Run(interrupt)
}
