package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

// Checkout is the order-placing flow: create the order once per idempotency
// key, then record what the payment gateway reported.
type Checkout struct {
	orders      ports.Service
	idempotency ports.IdempotencyStore
	newID       func(time.Time) string
	now         func() time.Time
}

type CheckoutOption func(*Checkout)

// WithIdempotencyStore enables replay of checkouts that carry a key.
func WithIdempotencyStore(store ports.IdempotencyStore) CheckoutOption {
	return func(c *Checkout) {
		c.idempotency = store
	}
}

// WithOrderIDs overrides how keyed checkouts mint the id they claim.
func WithOrderIDs(newID func(time.Time) string) CheckoutOption {
	return func(c *Checkout) {
		if newID != nil {
			c.newID = newID
		}
	}
}

func NewCheckout(orders ports.Service, opts ...CheckoutOption) *Checkout {
	c := &Checkout{orders: orders, newID: domain.NewOrderID, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Place creates the order and applies the payment outcome, if any.
func (c *Checkout) Place(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutResult, error) {
	result, err := c.CreateOrder(ctx, req.Draft, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if req.Payment != nil {
		if err := c.RecordPayment(ctx, result.OrderID, *req.Payment); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// CreateOrder inserts the draft. With a key and a store, the key is claimed
// for a freshly minted id before anything is inserted, so concurrent or
// repeated calls with the same draft all land on one order. Replayed is set
// when the key was already held.
func (c *Checkout) CreateOrder(ctx context.Context, draft domain.Draft, key string) (*ports.CheckoutResult, error) {
	if c == nil || c.orders == nil {
		return nil, errors.New("checkout not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" || c.idempotency == nil {
		id, err := c.orders.CreateOrder(ctx, draft)
		if err != nil {
			return nil, err
		}
		return &ports.CheckoutResult{OrderID: id}, nil
	}
	minted := c.newID(c.now())
	// An invalid draft must not claim the key.
	if _, err := domain.NewOrder(minted, draft, c.now()); err != nil {
		return nil, mapError(err)
	}

	hash, err := FingerprintDraft(draft)
	if err != nil {
		return nil, err
	}
	held, err := c.idempotency.Save(ctx, ports.IdempotencyRecord{Key: key, RequestHash: hash, OrderID: minted})
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrIdempotencyConflict) && held != nil && held.RequestHash == hash:
		// Another call with the same draft holds the key.
	case errors.Is(err, ports.ErrIdempotencyConflict):
		return nil, err
	default:
		return nil, persistenceError(err)
	}

	// The holder may not have inserted yet, or may have failed to; inserting
	// under the held id either completes it or finds it already there.
	err = c.orders.CreateOrderWithID(ctx, held.OrderID, draft)
	switch {
	case err == nil:
		return &ports.CheckoutResult{OrderID: held.OrderID, Replayed: held.OrderID != minted}, nil
	case errors.Is(err, ports.ErrAlreadyExists):
		return &ports.CheckoutResult{OrderID: held.OrderID, Replayed: true}, nil
	default:
		return nil, err
	}
}

// RecordPayment applies a gateway outcome to the order.
func (c *Checkout) RecordPayment(ctx context.Context, orderID string, outcome ports.PaymentOutcome) error {
	if c == nil || c.orders == nil {
		return errors.New("checkout not configured")
	}
	var ref *string
	if outcome.Reference != "" {
		ref = &outcome.Reference
	}
	return c.orders.UpdatePaymentStatus(ctx, orderID, outcome.Status, ref)
}
