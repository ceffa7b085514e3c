package application

import (
	"context"
	"sync"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

// UserOrdersSubscriber is the slice of ports.Service a UserOrdersView needs.
type UserOrdersSubscriber interface {
	SubscribeUserOrders(ctx context.Context, userID string, onSnapshot ports.SnapshotFunc, onError ports.ErrorFunc) (ports.Subscription, error)
}

// UserOrdersView is the per-user view bound to an explicit session. Every
// SetSession tears down the previous subscription before opening the next,
// so no snapshot for an old identity arrives after the switch.
type UserOrdersView struct {
	orders     UserOrdersSubscriber
	onSnapshot ports.SnapshotFunc
	onError    ports.ErrorFunc

	mu      sync.Mutex
	session *domain.Session
	sub     ports.Subscription
}

func NewUserOrdersView(orders UserOrdersSubscriber, onSnapshot ports.SnapshotFunc, onError ports.ErrorFunc) *UserOrdersView {
	return &UserOrdersView{orders: orders, onSnapshot: onSnapshot, onError: onError}
}

// SetSession rebinds the view. A nil session (signed out) delivers one empty
// snapshot and holds no subscription. ctx bounds the new subscription.
func (v *UserOrdersView) SetSession(ctx context.Context, session *domain.Session) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.sub != nil {
		v.sub.Close()
		v.sub = nil
	}
	if session == nil || session.UserID == "" {
		v.session = nil
		v.onSnapshot([]*domain.Order{})
		return nil
	}
	copied := *session
	v.session = &copied
	sub, err := v.orders.SubscribeUserOrders(ctx, session.UserID, v.onSnapshot, v.onError)
	if err != nil {
		return err
	}
	v.sub = sub
	return nil
}

// Session returns the identity the view is currently bound to.
func (v *UserOrdersView) Session() *domain.Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return nil
	}
	copied := *v.session
	return &copied
}

// Close releases the current subscription.
func (v *UserOrdersView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sub != nil {
		v.sub.Close()
		v.sub = nil
	}
}
