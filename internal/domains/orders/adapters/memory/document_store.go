package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/live"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

var _ ports.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-process order collection with live queries.
type DocumentStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	// sequence keeps insertion order, which is what an unordered query returns.
	sequence []string
	hub      *live.Hub
}

// NewDocumentStore builds an empty store. A nil logger uses slog.Default.
func NewDocumentStore(logger *slog.Logger) *DocumentStore {
	s := &DocumentStore{orders: map[string]*domain.Order{}}
	s.hub = live.NewHub(s.load, logger)
	return s
}

// Insert stores a copy of the order.
func (s *DocumentStore) Insert(_ context.Context, order *domain.Order) error {
	if order == nil {
		return errors.New("order is nil")
	}
	s.mu.Lock()
	if _, exists := s.orders[order.ID]; exists {
		s.mu.Unlock()
		return ports.ErrAlreadyExists
	}
	s.orders[order.ID] = order.Clone()
	s.sequence = append(s.sequence, order.ID)
	s.mu.Unlock()

	s.hub.Notify()
	return nil
}

func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

// Update merges the patch into the stored order.
func (s *DocumentStore) Update(_ context.Context, id string, patch domain.Patch) error {
	s.mu.Lock()
	order, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return ports.ErrNotFound
	}
	order.Apply(patch)
	s.mu.Unlock()

	s.hub.Notify()
	return nil
}

// Watch opens a live query.
func (s *DocumentStore) Watch(ctx context.Context, query ports.Query, onSnapshot ports.SnapshotFunc, onError ports.ErrorFunc) (ports.Subscription, error) {
	return s.hub.Subscribe(ctx, query, onSnapshot, onError)
}

// Revoke ends every live query with err, the way a backend drops listeners
// whose permission was withdrawn.
func (s *DocumentStore) Revoke(err error) {
	s.hub.Fail(err)
}

// Close ends every live query.
func (s *DocumentStore) Close() {
	s.hub.Close()
}

func (s *DocumentStore) load(_ context.Context, query ports.Query) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make([]*domain.Order, 0, len(s.sequence))
	for _, id := range s.sequence {
		order := s.orders[id]
		if query.UserID != "" && order.UserID != query.UserID {
			continue
		}
		orders = append(orders, order.Clone())
	}
	if query.Newest {
		domain.SortNewestFirst(orders)
	}
	return orders, nil
}
