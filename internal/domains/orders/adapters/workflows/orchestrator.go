// Package workflows runs checkout either through Temporal or in process.
package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	orderapp "github.com/Apurer/go-gin-orders-server/internal/domains/orders/application"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
	orderactivities "github.com/Apurer/go-gin-orders-server/internal/durable/temporal/activities/orders"
	orderworkflows "github.com/Apurer/go-gin-orders-server/internal/durable/temporal/workflows/orders"
)

var (
	_ ports.CheckoutOrchestrator = (*TemporalCheckout)(nil)
	_ ports.CheckoutOrchestrator = (*InlineCheckout)(nil)
)

// WorkflowStarter is the slice of the Temporal client the orchestrator uses.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	GetWorkflow(ctx context.Context, workflowID string, runID string) client.WorkflowRun
}

// TemporalCheckout starts checkout workflows on a Temporal cluster.
type TemporalCheckout struct {
	client    WorkflowStarter
	taskQueue string
}

// NewTemporalCheckout wires a Temporal client into the orchestrator.
func NewTemporalCheckout(c WorkflowStarter) *TemporalCheckout {
	return &TemporalCheckout{client: c, taskQueue: orderworkflows.CheckoutTaskQueue}
}

// Checkout runs the workflow and waits for its result. A key that already
// started a workflow joins that run instead of starting a second one.
func (o *TemporalCheckout) Checkout(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutResult, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal checkout not configured")
	}
	traceComponent := workflowTraceComponent(ctx)
	workflowID := buildCheckoutWorkflowID(req, traceComponent)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		orderworkflows.CheckoutWorkflowName,
		orderworkflows.CheckoutWorkflowInput{Request: req, TraceID: traceComponent},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) || strings.TrimSpace(req.IdempotencyKey) == "" {
			return nil, err
		}
		run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
	}
	var result ports.CheckoutResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, translateWorkflowError(err)
	}
	return &result, nil
}

// InlineCheckout executes checkout in process, for tests and deployments without Temporal.
type InlineCheckout struct {
	checkout *orderapp.Checkout
}

// NewInlineCheckout wraps the checkout flow for synchronous execution.
func NewInlineCheckout(checkout *orderapp.Checkout) *InlineCheckout {
	return &InlineCheckout{checkout: checkout}
}

// Checkout delegates to the checkout flow without durable orchestration.
func (o *InlineCheckout) Checkout(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutResult, error) {
	if o == nil || o.checkout == nil {
		return nil, errors.New("inline checkout not configured")
	}
	return o.checkout.Place(ctx, req)
}

// translateWorkflowError restores the sentinel behind a non-retryable activity failure.
func translateWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case orderactivities.ErrTypeValidation:
		return fmt.Errorf("%w: %s", orderapp.ErrValidation, appErr.Message())
	case orderactivities.ErrTypeIdempotencyConflict:
		return fmt.Errorf("%w: %s", ports.ErrIdempotencyConflict, appErr.Message())
	case orderactivities.ErrTypeNotFound:
		return fmt.Errorf("%w: %w", orderapp.ErrPersistence, ports.ErrNotFound)
	default:
		return err
	}
}

func buildCheckoutWorkflowID(req ports.CheckoutRequest, traceComponent string) string {
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		return fmt.Sprintf("order-checkout-idem-%s", hashIdempotencyKey(key))
	}
	return fmt.Sprintf("order-checkout-%s-%s", req.Draft.UserID, traceComponent)
}

func hashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

func workflowTraceComponent(ctx context.Context) string {
	if traceID := workflowTraceID(ctx); traceID != "" {
		return traceID
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
