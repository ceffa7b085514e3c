package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
	orderactivities "github.com/Apurer/go-gin-orders-server/internal/durable/temporal/activities/orders"
)

// CreateOrderOptions governs the insert step.
var CreateOrderOptions = workflow.ActivityOptions{
	StartToCloseTimeout: time.Minute,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    2 * time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    10 * time.Second,
		MaximumAttempts:    5,
	},
}

// RecordPaymentOptions governs the payment step.
var RecordPaymentOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 30 * time.Second,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    2 * time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    5 * time.Second,
		MaximumAttempts:    3,
	},
}

// RunCheckoutSequence creates the order, then records the payment outcome if one was reported.
func RunCheckoutSequence(ctx workflow.Context, req ports.CheckoutRequest) (*ports.CheckoutResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("checkout sequence started", "userId", req.Draft.UserID)

	var result ports.CheckoutResult
	createInput := orderactivities.CreateOrderInput{Draft: req.Draft, IdempotencyKey: req.IdempotencyKey}
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, CreateOrderOptions), orderactivities.CreateOrderActivityName, createInput).Get(ctx, &result)
	if err != nil {
		logger.Error("checkout sequence failed", "userId", req.Draft.UserID, "error", err)
		return nil, err
	}
	logger.Info("checkout sequence created order", "orderId", result.OrderID, "replayed", result.Replayed)

	if req.Payment != nil {
		paymentInput := orderactivities.RecordPaymentInput{OrderID: result.OrderID, Outcome: *req.Payment}
		if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, RecordPaymentOptions), orderactivities.RecordPaymentActivityName, paymentInput).Get(ctx, nil); err != nil {
			logger.Error("checkout sequence payment failed", "orderId", result.OrderID, "error", err)
			return &result, err
		}
		logger.Info("checkout sequence recorded payment", "orderId", result.OrderID, "paymentStatus", string(req.Payment.Status))
	}
	return &result, nil
}
