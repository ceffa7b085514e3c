package api

import (
	"context"
	"fmt"
	"log/slog"

	ordermemory "github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/memory"
	ordermongo "github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/persistence/mongo"
	orderpostgres "github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/persistence/postgres"
	orderports "github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-orders-server/internal/platform/migrations"
	platformmongo "github.com/Apurer/go-gin-orders-server/internal/platform/mongo"
	platformpostgres "github.com/Apurer/go-gin-orders-server/internal/platform/postgres"
)

// Stores is the persistence selected by ORDER_STORE.
type Stores struct {
	Documents   orderports.DocumentStore
	Idempotency orderports.IdempotencyStore
}

type closableStore interface {
	orderports.DocumentStore
	Close()
}

// OpenStores connects the configured backend and starts its change feed.
// The feed runs until ctx is cancelled; cleanup releases the connection.
func OpenStores(ctx context.Context, cfg Config, logger *slog.Logger) (*Stores, func(), error) {
	switch cfg.Store {
	case StorePostgres:
		return openPostgres(ctx, cfg, logger)
	case StoreMongo:
		return openMongo(ctx, cfg, logger)
	default:
		logger.Warn("ORDER_STORE=memory, orders are kept in process only")
		store := ordermemory.NewDocumentStore(logger)
		return &Stores{Documents: store, Idempotency: ordermemory.NewIdempotencyStore()}, store.Close, nil
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Stores, func(), error) {
	db, closeDB, err := platformpostgres.Open(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Run(db); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("migrate orders schema: %w", err)
	}
	store := orderpostgres.NewDocumentStore(db, logger)
	if err := store.Listen(ctx, cfg.PostgresDSN); err != nil {
		logger.Warn("postgres change feed unavailable, only local writes refresh live views", slog.String("error", err.Error()))
	}
	logger.Info("order store configured with postgres")
	return &Stores{Documents: store, Idempotency: orderpostgres.NewIdempotencyStore(db)}, cleanup(store, closeDB), nil
}

func openMongo(ctx context.Context, cfg Config, logger *slog.Logger) (*Stores, func(), error) {
	db, disconnect, err := platformmongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		return nil, nil, err
	}
	store := ordermongo.NewDocumentStore(db, logger)
	if err := store.EnsureIndexes(ctx); err != nil {
		disconnect()
		return nil, nil, fmt.Errorf("ensure order indexes: %w", err)
	}
	if err := store.Listen(ctx); err != nil {
		logger.Warn("mongo change stream unavailable, only local writes refresh live views", slog.String("error", err.Error()))
	}
	logger.Info("order store configured with mongo", slog.String("database", cfg.MongoDatabase))
	// Idempotency keys stay in process for mongo deployments.
	return &Stores{Documents: store, Idempotency: ordermemory.NewIdempotencyStore()}, cleanup(store, disconnect), nil
}

func cleanup(store closableStore, release func()) func() {
	return func() {
		store.Close()
		release()
	}
}
