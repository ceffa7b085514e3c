package ports

import (
	"context"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
)

// PaymentOutcome is what the payment gateway reports back for an order.
type PaymentOutcome struct {
	Status    domain.PaymentStatus
	Reference string
}

// CheckoutRequest places an order and optionally records the payment result.
type CheckoutRequest struct {
	Draft          domain.Draft
	Payment        *PaymentOutcome
	IdempotencyKey string
}

// CheckoutResult reports the order produced by a checkout.
type CheckoutResult struct {
	OrderID  string
	Replayed bool
}

// CheckoutOrchestrator runs the checkout flow, durably or inline.
type CheckoutOrchestrator interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
}
