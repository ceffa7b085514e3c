//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-orders-server/internal/platform/migrations"
	platformpostgres "github.com/Apurer/go-gin-orders-server/internal/platform/postgres"
)

func setupOrdersPostgresContainer(t *testing.T) (*gorm.DB, string, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("orders_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := platformpostgres.Connect(ctx, dsn)
	require.NoError(t, err)

	err = migrations.Run(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, dsn, cleanup
}

func newOrder(id, user string, created time.Time) *domain.Order {
	return &domain.Order{
		ID:             id,
		UserID:         user,
		Items:          []domain.OrderItem{{ID: "p1", Name: "Plantain chips", Price: 1500, Quantity: 2}},
		Total:          3000,
		Status:         domain.StatusPending,
		PaymentMethod:  domain.PaymentMethodPaystack,
		PaymentStatus:  domain.PaymentPending,
		DeliveryMethod: domain.DeliveryPickup,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func watch(t *testing.T, store *DocumentStore, q ports.Query) <-chan []*domain.Order {
	t.Helper()
	ch := make(chan []*domain.Order, 16)
	sub, err := store.Watch(context.Background(), q, func(o []*domain.Order) { ch <- o }, nil)
	require.NoError(t, err)
	t.Cleanup(sub.Close)
	return ch
}

func awaitSnapshot(t *testing.T, ch <-chan []*domain.Order, match func([]*domain.Order) bool) []*domain.Order {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case got := <-ch:
			if match(got) {
				return got
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}
}

func TestDocumentStore_InsertAndWatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, _, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	store := NewDocumentStore(db, nil)
	defer store.Close()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, newOrder("AGF-1", "u1", base)))
	require.NoError(t, store.Insert(ctx, newOrder("AGF-2", "u2", base.Add(time.Hour))))
	require.ErrorIs(t, store.Insert(ctx, newOrder("AGF-1", "u1", base)), ports.ErrAlreadyExists)

	all := awaitSnapshot(t, watch(t, store, ports.Query{Newest: true}), func(o []*domain.Order) bool { return len(o) == 2 })
	assert.Equal(t, "AGF-2", all[0].ID)
	assert.Equal(t, "AGF-1", all[1].ID)
	require.Len(t, all[1].Items, 1)
	assert.Equal(t, 2, all[1].Items[0].Quantity)

	mine := awaitSnapshot(t, watch(t, store, ports.Query{UserID: "u1"}), func(o []*domain.Order) bool { return len(o) == 1 })
	assert.Equal(t, "u1", mine[0].UserID)
}

func TestDocumentStore_UpdateMergesColumns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, _, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	store := NewDocumentStore(db, nil)
	defer store.Close()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, newOrder("AGF-1", "u1", base)))

	ch := watch(t, store, ports.Query{})
	awaitSnapshot(t, ch, func(o []*domain.Order) bool { return len(o) == 1 })

	paid := domain.PaymentPaid
	ref := "AGF_1_abc"
	require.NoError(t, store.Update(ctx, "AGF-1", domain.Patch{PaymentStatus: &paid, PaymentReference: &ref, UpdatedAt: base.Add(time.Minute)}))

	got := awaitSnapshot(t, ch, func(o []*domain.Order) bool { return len(o) == 1 && o[0].PaymentStatus == domain.PaymentPaid })
	assert.Equal(t, domain.StatusPending, got[0].Status)
	assert.Equal(t, ref, got[0].PaymentReference)
	assert.True(t, got[0].UpdatedAt.Equal(base.Add(time.Minute)))

	shipped := domain.StatusShipped
	assert.ErrorIs(t, store.Update(ctx, "missing", domain.Patch{Status: &shipped}), ports.ErrNotFound)
}

func TestDocumentStore_ListenDeliversRemoteWrites(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, dsn, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := NewDocumentStore(db, nil)
	defer reader.Close()
	require.NoError(t, reader.Listen(ctx, dsn))

	ch := watch(t, reader, ports.Query{Newest: true})
	awaitSnapshot(t, ch, func(o []*domain.Order) bool { return len(o) == 0 })

	writer := NewDocumentStore(db, nil)
	defer writer.Close()
	require.NoError(t, writer.Insert(ctx, newOrder("AGF-9", "u9", time.Now().UTC())))

	got := awaitSnapshot(t, ch, func(o []*domain.Order) bool { return len(o) == 1 })
	assert.Equal(t, "AGF-9", got[0].ID)
}

func TestIdempotencyStore_SaveAndConflict(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, _, cleanup := setupOrdersPostgresContainer(t)
	defer cleanup()

	store := NewIdempotencyStore(db)
	ctx := context.Background()

	saved, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h1", OrderID: "AGF-1"})
	require.NoError(t, err)
	assert.Equal(t, "AGF-1", saved.OrderID)

	again, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h1", OrderID: "AGF-1"})
	require.NoError(t, err)
	assert.Equal(t, "AGF-1", again.OrderID)

	_, err = store.Save(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h2", OrderID: "AGF-1"})
	assert.ErrorIs(t, err, ports.ErrIdempotencyConflict)

	missing, err := store.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
