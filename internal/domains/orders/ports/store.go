package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrAlreadyExists = errors.New("order already exists")
)

// Query selects the orders a live view observes.
type Query struct {
	// UserID restricts the view to one owner by equality. Empty means every order.
	UserID string
	// Newest asks the store to order by createdAt descending. Without it the order is unspecified.
	Newest bool
}

// SnapshotFunc receives the full result set of a live query. The slice is owned by the callee.
type SnapshotFunc func(orders []*domain.Order)

// ErrorFunc receives the terminal error of a live query.
type ErrorFunc func(err error)

// Subscription is a standing live query.
type Subscription interface {
	// Close releases the query. Once it returns no further callback runs.
	// It must not be called from inside the snapshot callback.
	Close()
}

// DocumentStore is the external order collection.
type DocumentStore interface {
	Insert(ctx context.Context, order *domain.Order) error
	// Get reads one order, returning ErrNotFound when absent.
	Get(ctx context.Context, id string) (*domain.Order, error)
	// Update merges the patch into an existing order, returning ErrNotFound when absent.
	Update(ctx context.Context, id string, patch domain.Patch) error
	// Watch delivers an initial snapshot and then a fresh one after every change.
	// Callbacks for one subscription never overlap.
	Watch(ctx context.Context, query Query, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)
}
