package orders

import (
	"context"
	"errors"
	"strings"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	orderapp "github.com/Apurer/go-gin-orders-server/internal/domains/orders/application"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

const (
	// CreateOrderActivityName inserts the order once per checkout.
	CreateOrderActivityName = "orders.activities.CreateOrder"
	// RecordPaymentActivityName applies the gateway outcome to a placed order.
	RecordPaymentActivityName = "orders.activities.RecordPayment"
)

// CheckoutSteps is the part of the checkout flow the activities drive.
type CheckoutSteps interface {
	CreateOrder(ctx context.Context, draft domain.Draft, key string) (*ports.CheckoutResult, error)
	RecordPayment(ctx context.Context, orderID string, outcome ports.PaymentOutcome) error
}

// CreateOrderInput is the payload of the create activity.
type CreateOrderInput struct {
	Draft          domain.Draft
	IdempotencyKey string
}

// RecordPaymentInput is the payload of the payment activity.
type RecordPaymentInput struct {
	OrderID string
	Outcome ports.PaymentOutcome
}

// Activities groups activities that operate on the orders bounded context.
type Activities struct {
	steps CheckoutSteps
}

// NewActivities wires the checkout flow into the Temporal activities bundle.
// The flow should carry an idempotency store so retried attempts replay.
func NewActivities(steps CheckoutSteps) *Activities {
	return &Activities{steps: steps}
}

// CreateOrder inserts the draft. Without a client key the workflow id keys
// the insert, so a retried attempt returns the order the first one created.
func (a *Activities) CreateOrder(ctx context.Context, input CreateOrderInput) (*ports.CheckoutResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.steps == nil {
		logger.Error("order create activity not initialized", "userId", input.Draft.UserID)
		return nil, errors.New("order create activity not initialized")
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		key = "workflow:" + activity.GetInfo(ctx).WorkflowExecution.ID
	}
	logger.Info("CreateOrder activity started", "userId", input.Draft.UserID)
	result, err := a.steps.CreateOrder(ctx, input.Draft, key)
	if err != nil {
		logger.Error("CreateOrder activity failed", "userId", input.Draft.UserID, "error", err)
		return nil, nonRetryable(err)
	}
	logger.Info("CreateOrder activity completed", "orderId", result.OrderID, "replayed", result.Replayed)
	return result, nil
}

// RecordPayment applies the payment outcome. Reapplying the same outcome is harmless.
func (a *Activities) RecordPayment(ctx context.Context, input RecordPaymentInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.steps == nil {
		logger.Error("order payment activity not initialized", "orderId", input.OrderID)
		return errors.New("order payment activity not initialized")
	}
	logger.Info("RecordPayment activity started", "orderId", input.OrderID, "paymentStatus", string(input.Outcome.Status))
	if err := a.steps.RecordPayment(ctx, input.OrderID, input.Outcome); err != nil {
		logger.Error("RecordPayment activity failed", "orderId", input.OrderID, "error", err)
		return nonRetryable(err)
	}
	logger.Info("RecordPayment activity completed", "orderId", input.OrderID)
	return nil
}

// nonRetryable stops retries for failures a second attempt cannot fix.
func nonRetryable(err error) error {
	switch {
	case errors.Is(err, orderapp.ErrValidation):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeValidation, err)
	case errors.Is(err, ports.ErrIdempotencyConflict):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeIdempotencyConflict, err)
	case errors.Is(err, ports.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotFound, err)
	default:
		return err
	}
}

// Application error types carried across the workflow boundary.
const (
	ErrTypeValidation          = "OrderValidation"
	ErrTypeIdempotencyConflict = "IdempotencyConflict"
	ErrTypeNotFound            = "OrderNotFound"
)
