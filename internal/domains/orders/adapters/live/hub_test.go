package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

type countingLoader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (l *countingLoader) load(_ context.Context, q ports.Query) ([]*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return []*domain.Order{{ID: "AGF-1", UserID: q.UserID}}, nil
}

func (l *countingLoader) failWith(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

func TestHub_DeliversInitialAndNotifiedSnapshots(t *testing.T) {
	loader := &countingLoader{}
	hub := NewHub(loader.load, nil)

	snapshots := make(chan []*domain.Order, 10)
	sub, err := hub.Subscribe(context.Background(), ports.Query{UserID: "u1"}, func(o []*domain.Order) { snapshots <- o }, nil)
	require.NoError(t, err)
	defer sub.Close()

	first := receive(t, snapshots)
	require.Equal(t, "u1", first[0].UserID)

	hub.Notify()
	receive(t, snapshots)
	require.Equal(t, 1, hub.Len())
}

func TestHub_CloseStopsDelivery(t *testing.T) {
	loader := &countingLoader{}
	hub := NewHub(loader.load, nil)

	var delivered atomic.Int32
	sub, err := hub.Subscribe(context.Background(), ports.Query{}, func([]*domain.Order) { delivered.Add(1) }, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return delivered.Load() == 1 }, time.Second, 5*time.Millisecond)

	sub.Close()
	before := delivered.Load()
	hub.Notify()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, before, delivered.Load())
	require.Equal(t, 0, hub.Len())
}

func TestHub_ContextCancelClosesSubscription(t *testing.T) {
	hub := NewHub((&countingLoader{}).load, nil)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := hub.Subscribe(ctx, ports.Query{}, func([]*domain.Order) {}, nil)
	require.NoError(t, err)
	cancel()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_LoadErrorIsTerminal(t *testing.T) {
	loader := &countingLoader{}
	hub := NewHub(loader.load, nil)

	snapshots := make(chan []*domain.Order, 10)
	errs := make(chan error, 1)
	_, err := hub.Subscribe(context.Background(), ports.Query{}, func(o []*domain.Order) { snapshots <- o }, func(err error) { errs <- err })
	require.NoError(t, err)
	receive(t, snapshots)

	boom := errors.New("permission revoked")
	loader.failWith(boom)
	hub.Notify()

	select {
	case got := <-errs:
		require.ErrorIs(t, got, boom)
	case <-time.After(time.Second):
		t.Fatal("expected terminal error")
	}
	require.Equal(t, 0, hub.Len())
}

func TestHub_FailAndClose(t *testing.T) {
	hub := NewHub((&countingLoader{}).load, nil)
	errs := make(chan error, 1)
	_, err := hub.Subscribe(context.Background(), ports.Query{}, func([]*domain.Order) {}, func(err error) { errs <- err })
	require.NoError(t, err)

	hub.Fail(errors.New("listener lost"))
	require.Error(t, <-errs)

	hub.Close()
	_, err = hub.Subscribe(context.Background(), ports.Query{}, func([]*domain.Order) {}, nil)
	require.ErrorIs(t, err, ErrClosed)
}

func receive(t *testing.T, ch <-chan []*domain.Order) []*domain.Order {
	t.Helper()
	select {
	case orders := <-ch:
		return orders
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
