package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore holds checkout keys in process. Expired keys are dropped
// when they are next touched.
type IdempotencyStore struct {
	mu        sync.Mutex
	records   map[string]ports.IdempotencyRecord
	retention time.Duration
	now       func() time.Time
}

type IdempotencyOption func(*IdempotencyStore)

// WithRetention overrides ports.DefaultKeyRetention.
func WithRetention(d time.Duration) IdempotencyOption {
	return func(s *IdempotencyStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

func WithIdempotencyClock(now func() time.Time) IdempotencyOption {
	return func(s *IdempotencyStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewIdempotencyStore(opts ...IdempotencyOption) *IdempotencyStore {
	s := &IdempotencyStore{
		records:   map[string]ports.IdempotencyRecord{},
		retention: ports.DefaultKeyRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.live(key); ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *IdempotencyStore) Save(_ context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.live(record.Key); ok {
		if !held.Same(record) {
			return &held, ports.ErrIdempotencyConflict
		}
		return &held, nil
	}
	record.CreatedAt = s.now()
	s.records[record.Key] = record
	return &record, nil
}

// live must be called with mu held.
func (s *IdempotencyStore) live(key string) (ports.IdempotencyRecord, bool) {
	rec, ok := s.records[key]
	if !ok {
		return ports.IdempotencyRecord{}, false
	}
	if s.now().Sub(rec.CreatedAt) >= s.retention {
		delete(s.records, key)
		return ports.IdempotencyRecord{}, false
	}
	return rec, true
}
