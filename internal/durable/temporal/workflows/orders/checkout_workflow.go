package orders

import (
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-orders-server/internal/durable/temporal/sequences"
)

const (
	// CheckoutWorkflowName is the public identifier for registering the workflow.
	CheckoutWorkflowName = "orders.workflows.Checkout"
	// CheckoutTaskQueue is the queue consumed by the worker processing checkouts.
	CheckoutTaskQueue = "ORDER_CHECKOUT"
)

// CheckoutWorkflowInput captures one storefront checkout.
type CheckoutWorkflowInput struct {
	Request ports.CheckoutRequest
	TraceID string
}

// CheckoutWorkflow places the order and records its payment outcome.
func CheckoutWorkflow(ctx workflow.Context, input CheckoutWorkflowInput) (*ports.CheckoutResult, error) {
	logger := workflow.GetLogger(ctx)
	userID := input.Request.Draft.UserID
	logger.Info("CheckoutWorkflow started", withTraceID(input.TraceID, "userId", userID)...)
	result, err := sequences.RunCheckoutSequence(ctx, input.Request)
	if err != nil {
		logger.Error("CheckoutWorkflow failed", withTraceID(input.TraceID, "userId", userID, "error", err)...)
		return nil, err
	}
	logger.Info("CheckoutWorkflow completed", withTraceID(input.TraceID, "orderId", result.OrderID)...)
	return result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
