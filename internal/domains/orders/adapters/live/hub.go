// Package live fans store change signals out to standing queries. Each
// subscription re-runs its query on a signal and delivers the full result.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

// ErrClosed is returned when subscribing to a hub that has been shut down.
var ErrClosed = errors.New("live hub closed")

// Loader runs a query against the backing store.
type Loader func(ctx context.Context, query ports.Query) ([]*domain.Order, error)

// Hub tracks the subscriptions of one store.
type Hub struct {
	load   Loader
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[string]*subscription
	closed bool
}

// NewHub builds a hub around the store's query function.
func NewHub(load Loader, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{load: load, logger: logger, subs: map[string]*subscription{}}
}

// Subscribe registers a standing query. The initial snapshot is delivered
// asynchronously, followed by one per Notify. Cancelling ctx closes it.
func (h *Hub) Subscribe(ctx context.Context, query ports.Query, onSnapshot ports.SnapshotFunc, onError ports.ErrorFunc) (ports.Subscription, error) {
	if onSnapshot == nil {
		return nil, errors.New("snapshot callback is required")
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		id:         uuid.NewString(),
		hub:        h,
		query:      query,
		onSnapshot: onSnapshot,
		onError:    onError,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		cancel:     cancel,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	h.subs[sub.id] = sub
	h.mu.Unlock()

	sub.signal()
	go sub.run(subCtx)
	h.logger.Debug("live query opened", slog.String("subscription", sub.id), slog.String("user_id", query.UserID))
	return sub, nil
}

// Notify marks every subscription stale. Signals coalesce while a reload is pending.
func (h *Hub) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		sub.signal()
	}
}

// Fail terminates every subscription with err.
func (h *Hub) Fail(err error) {
	for _, sub := range h.snapshot() {
		sub.fail(err)
	}
}

// Close terminates every subscription silently and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	for _, sub := range h.snapshot() {
		sub.Close()
	}
}

// Len reports the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) snapshot() []*subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := make([]*subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	return subs
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

type subscription struct {
	id         string
	hub        *Hub
	query      ports.Query
	onSnapshot ports.SnapshotFunc
	onError    ports.ErrorFunc

	wake   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once

	// deliver serializes callbacks with Close.
	deliver sync.Mutex
	closed  bool
}

func (s *subscription) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) run(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.Close()
			return
		case <-s.wake:
			orders, err := s.hub.load(ctx, s.query)
			if err != nil {
				if ctx.Err() != nil {
					s.Close()
					return
				}
				s.hub.logger.Warn("live query failed", slog.String("subscription", s.id), slog.String("error", err.Error()))
				s.fail(err)
				return
			}
			s.emit(orders)
		}
	}
}

func (s *subscription) emit(orders []*domain.Order) {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if s.closed {
		return
	}
	s.onSnapshot(orders)
}

func (s *subscription) fail(err error) {
	s.deliver.Lock()
	if s.closed {
		s.deliver.Unlock()
		return
	}
	s.closed = true
	s.deliver.Unlock()
	s.shutdown()
	if s.onError != nil {
		s.onError(err)
	}
}

// Close implements ports.Subscription.
func (s *subscription) Close() {
	s.deliver.Lock()
	s.closed = true
	s.deliver.Unlock()
	s.shutdown()
}

func (s *subscription) shutdown() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
		s.hub.remove(s.id)
	})
}
