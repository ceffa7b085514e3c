package ports

import (
	"context"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
)

// Service exposes order use cases to adapters.
type Service interface {
	SubscribeAllOrders(ctx context.Context, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)
	SubscribeUserOrders(ctx context.Context, userID string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)
	CreateOrder(ctx context.Context, draft domain.Draft) (string, error)
	// CreateOrderWithID inserts under a caller-minted id; a taken id wraps ErrAlreadyExists.
	CreateOrderWithID(ctx context.Context, id string, draft domain.Draft) error
	UpdateOrderStatus(ctx context.Context, id string, status domain.Status) error
	UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus, reference *string) error

	// GetOrderByID reads the latest all-orders snapshot, not the store.
	GetOrderByID(id string) (*domain.Order, bool)
	Orders() []*domain.Order
	Stats() domain.OrderStats
	// Loaded reports whether the first all-orders snapshot has arrived.
	Loaded() bool
	// FeedErr returns the terminal error of the all-orders feed, if any.
	FeedErr() error
}
