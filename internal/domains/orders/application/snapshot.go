package application

import (
	"context"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

// SubscribeFunc opens a live view.
type SubscribeFunc func(ctx context.Context, onSnapshot ports.SnapshotFunc, onError ports.ErrorFunc) (ports.Subscription, error)

// FirstSnapshot opens a view, waits for its first snapshot and releases it.
func FirstSnapshot(ctx context.Context, subscribe SubscribeFunc) ([]*domain.Order, error) {
	snapshots := make(chan []*domain.Order, 1)
	errs := make(chan error, 1)
	sub, err := subscribe(ctx,
		func(orders []*domain.Order) {
			select {
			case snapshots <- orders:
			default:
			}
		},
		func(err error) {
			select {
			case errs <- err:
			default:
			}
		},
	)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	select {
	case orders := <-snapshots:
		return orders, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
