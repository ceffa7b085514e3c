package ports

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyConflict is returned when a live key is reused for a different checkout.
var ErrIdempotencyConflict = errors.New("idempotency conflict")

// DefaultKeyRetention is how long a checkout key keeps replaying its order.
const DefaultKeyRetention = 24 * time.Hour

// IdempotencyRecord binds an Idempotency-Key to the order it placed.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OrderID     string
	CreatedAt   time.Time
}

// Same reports whether both records describe one checkout.
func (r IdempotencyRecord) Same(other IdempotencyRecord) bool {
	return r.RequestHash == other.RequestHash && r.OrderID == other.OrderID
}

// IdempotencyStore remembers checkout keys until their retention lapses.
// Expired keys behave as unknown and may be claimed again.
type IdempotencyStore interface {
	// Get returns the live record for key, or nil.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Save claims the key. When a live record already holds it, that record is
	// returned, with ErrIdempotencyConflict unless it is the Same checkout.
	Save(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
}
