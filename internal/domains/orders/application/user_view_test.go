package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/memory"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
)

func TestUserOrdersView_FollowsSession(t *testing.T) {
	store := memory.NewDocumentStore(nil)
	svc := NewService(store)
	ctx := context.Background()
	_, err := svc.CreateOrder(ctx, draftFor("alice"))
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, draftFor("bob"))
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, draftFor("bob"))
	require.NoError(t, err)

	rec := &recorder{}
	view := NewUserOrdersView(svc, rec.onSnapshot, rec.onError)
	defer view.Close()

	require.NoError(t, view.SetSession(ctx, &domain.Session{UserID: "alice", Email: "alice@example.com"}))
	require.Eventually(t, func() bool { return len(rec.last()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "alice", view.Session().UserID)

	require.NoError(t, view.SetSession(ctx, &domain.Session{UserID: "bob"}))
	require.Eventually(t, func() bool { return len(rec.last()) == 2 }, time.Second, 5*time.Millisecond)
	for _, o := range rec.last() {
		require.Equal(t, "bob", o.UserID)
	}

	require.NoError(t, view.SetSession(ctx, nil))
	require.NotNil(t, rec.last())
	require.Empty(t, rec.last())
	require.Nil(t, view.Session())

	// Signed out: new orders for the previous user produce no callbacks.
	before := rec.count()
	_, err = svc.CreateOrder(ctx, draftFor("bob"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, before, rec.count())
}

func TestUserOrdersView_OldSessionStopsDelivering(t *testing.T) {
	store := memory.NewDocumentStore(nil)
	svc := NewService(store)
	ctx := context.Background()

	rec := &recorder{}
	view := NewUserOrdersView(svc, rec.onSnapshot, rec.onError)
	defer view.Close()

	require.NoError(t, view.SetSession(ctx, &domain.Session{UserID: "alice"}))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, view.SetSession(ctx, &domain.Session{UserID: "bob"}))
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)

	_, err := svc.CreateOrder(ctx, draftFor("alice"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	// bob's view refreshes on any change but never carries alice's order.
	for _, o := range rec.last() {
		require.Equal(t, "bob", o.UserID)
	}
}
