package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

// maxIDAttempts bounds how often CreateOrder re-mints an id that already exists.
const maxIDAttempts = 3

// Service owns the order views and lifecycle operations. The all-orders
// snapshot it caches changes only when the store delivers one.
type Service struct {
	store    ports.DocumentStore
	now      func() time.Time
	newID    func(time.Time) string
	policy   domain.TransitionPolicy
	location *time.Location

	mu      sync.RWMutex
	orders  []*domain.Order
	index   map[string]*domain.Order
	stats   domain.OrderStats
	loaded  bool
	feedErr error
	feed    ports.Subscription
	// issued holds updatedAt values written but not yet seen in a snapshot.
	issued map[string]time.Time
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides order id minting.
func WithIDGenerator(newID func(time.Time) string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithTransitionPolicy selects how status changes are checked.
func WithTransitionPolicy(policy domain.TransitionPolicy) Option {
	return func(s *Service) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithLocation sets the zone used for the day and month statistics buckets.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

func NewService(store ports.DocumentStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		now:      time.Now,
		newID:    domain.NewOrderID,
		policy:   domain.PermissiveTransitions{},
		location: time.Local,
		index:    map[string]*domain.Order{},
		issued:   map[string]time.Time{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start opens the all-orders view that backs GetOrderByID, Orders and Stats.
func (s *Service) Start(ctx context.Context) error {
	sub, err := s.SubscribeAllOrders(ctx, s.applySnapshot, s.failFeed)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.feed = sub
	s.mu.Unlock()
	return nil
}

// Close releases the all-orders view.
func (s *Service) Close() {
	s.mu.Lock()
	feed := s.feed
	s.feed = nil
	s.mu.Unlock()
	if feed != nil {
		feed.Close()
	}
}

// SubscribeAllOrders opens the ordered, unfiltered view.
func (s *Service) SubscribeAllOrders(ctx context.Context, onSnapshot ports.SnapshotFunc, onError ports.ErrorFunc) (ports.Subscription, error) {
	sub, err := s.store.Watch(ctx, ports.Query{Newest: true}, onSnapshot, wrapFeedError(onError))
	if err != nil {
		return nil, persistenceError(err)
	}
	return sub, nil
}

// SubscribeUserOrders opens one owner's view. The store filters by owner
// only; recency order is applied here.
func (s *Service) SubscribeUserOrders(ctx context.Context, userID string, onSnapshot ports.SnapshotFunc, onError ports.ErrorFunc) (ports.Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, mapError(domain.ErrMissingOwner)
	}
	if onSnapshot == nil {
		return nil, errors.New("snapshot callback is required")
	}
	deliver := func(orders []*domain.Order) {
		owned := orders[:0]
		for _, o := range orders {
			if o != nil && o.UserID == userID {
				owned = append(owned, o)
			}
		}
		domain.SortNewestFirst(owned)
		onSnapshot(owned)
	}
	sub, err := s.store.Watch(ctx, ports.Query{UserID: userID}, deliver, wrapFeedError(onError))
	if err != nil {
		return nil, persistenceError(err)
	}
	return sub, nil
}

// CreateOrder stamps the draft with a fresh id and inserts it. The write is
// not cancelled by ctx.
func (s *Service) CreateOrder(ctx context.Context, draft domain.Draft) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID(s.now())
		err := s.CreateOrderWithID(ctx, id, draft)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ports.ErrAlreadyExists) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// CreateOrderWithID inserts the draft under a caller-minted id. An id that is
// already taken fails with ErrPersistence wrapping ports.ErrAlreadyExists.
func (s *Service) CreateOrderWithID(ctx context.Context, id string, draft domain.Draft) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: order id is required", ErrValidation)
	}
	order, err := domain.NewOrder(id, draft, s.now())
	if err != nil {
		return mapError(err)
	}
	if err := s.store.Insert(context.WithoutCancel(ctx), order); err != nil {
		return persistenceError(err)
	}
	return nil
}

// UpdateOrderStatus sets the status and bumps updatedAt.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status domain.Status) error {
	current, err := s.currentOrder(ctx, id)
	if err != nil {
		return err
	}
	var from domain.Status
	if current != nil {
		from = current.Status
	}
	if err := s.policy.CheckStatus(from, status); err != nil {
		return mapError(err)
	}
	return s.update(ctx, id, current, domain.Patch{Status: &status})
}

// UpdatePaymentStatus sets the payment status and bumps updatedAt. A
// non-empty reference replaces the stored one; otherwise it is left alone.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus, reference *string) error {
	current, err := s.currentOrder(ctx, id)
	if err != nil {
		return err
	}
	var from domain.PaymentStatus
	if current != nil {
		from = current.PaymentStatus
	}
	if err := s.policy.CheckPayment(from, status); err != nil {
		return mapError(err)
	}
	patch := domain.Patch{PaymentStatus: &status}
	if reference != nil && strings.TrimSpace(*reference) != "" {
		ref := strings.TrimSpace(*reference)
		patch.PaymentReference = &ref
	}
	return s.update(ctx, id, current, patch)
}

// currentOrder resolves id from the snapshot cache, falling back to a store
// read for orders the feed has not delivered yet. A missing order is an
// error only when the policy needs the current value.
func (s *Service) currentOrder(ctx context.Context, id string) (*domain.Order, error) {
	if order, ok := s.GetOrderByID(id); ok {
		return order, nil
	}
	order, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		return order, nil
	case errors.Is(err, ports.ErrNotFound) && !s.policy.Enforces():
		return nil, nil
	default:
		return nil, persistenceError(err)
	}
}

func (s *Service) update(ctx context.Context, id string, current *domain.Order, patch domain.Patch) error {
	patch.UpdatedAt = s.nextUpdatedAt(id, current)
	if err := s.store.Update(context.WithoutCancel(ctx), id, patch); err != nil {
		s.mu.Lock()
		if s.issued[id].Equal(patch.UpdatedAt) {
			delete(s.issued, id)
		}
		s.mu.Unlock()
		return persistenceError(err)
	}
	return nil
}

// GetOrderByID looks the id up in the latest all-orders snapshot.
func (s *Service) GetOrderByID(id string) (*domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return order.Clone(), true
}

// Orders returns a copy of the latest all-orders snapshot, newest first.
func (s *Service) Orders() []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	return out
}

// Stats returns the statistics computed from the latest snapshot.
func (s *Service) Stats() domain.OrderStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Service) FeedErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feedErr
}

func (s *Service) applySnapshot(orders []*domain.Order) {
	index := make(map[string]*domain.Order, len(orders))
	for _, o := range orders {
		if o != nil {
			index[o.ID] = o
		}
	}
	stats := domain.ComputeStats(orders, s.now().In(s.location))

	s.mu.Lock()
	for id, at := range s.issued {
		if o, ok := index[id]; ok && !o.UpdatedAt.Before(at) {
			delete(s.issued, id)
		}
	}
	s.orders = orders
	s.index = index
	s.stats = stats
	s.loaded = true
	s.mu.Unlock()
}

func (s *Service) failFeed(err error) {
	s.mu.Lock()
	s.feedErr = err
	s.feed = nil
	s.mu.Unlock()
}

// nextUpdatedAt returns a timestamp later than both the known value and any
// value this service already issued for id.
func (s *Service) nextUpdatedAt(id string, current *domain.Order) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	floor := s.issued[id]
	if current != nil && current.UpdatedAt.After(floor) {
		floor = current.UpdatedAt
	}
	next := s.now()
	if !floor.IsZero() && !next.After(floor) {
		next = floor.Add(time.Millisecond)
	}
	s.issued[id] = next
	return next
}

func wrapFeedError(onError ports.ErrorFunc) ports.ErrorFunc {
	if onError == nil {
		return nil
	}
	return func(err error) {
		onError(persistenceError(err))
	}
}

var _ ports.Service = (*Service)(nil)
