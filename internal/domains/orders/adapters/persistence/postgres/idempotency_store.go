package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

const idempotencyTable = "order_idempotency_keys"

// IdempotencyStore keeps checkout keys in PostgreSQL. A key whose retention
// has lapsed is reclaimed in place by the next Save.
type IdempotencyStore struct {
	db        *gorm.DB
	retention time.Duration
	now       func() time.Time
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db, retention: ports.DefaultKeyRetention, now: time.Now}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (*ports.IdempotencyRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("postgres idempotency store not configured")
	}
	var row keyRow
	err := s.db.WithContext(ctx).
		Where("key = ? AND created_at > ?", key, s.cutoff()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}
	return row.toPort(), nil
}

// Save inserts the key, or overwrites an expired holder, in one statement.
// When a live holder wins, it is read back and compared.
func (s *IdempotencyStore) Save(ctx context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("postgres idempotency store not configured")
	}
	row := keyRow{Key: record.Key, RequestHash: record.RequestHash, OrderID: record.OrderID, CreatedAt: s.now().UTC()}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"request_hash", "order_id", "created_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lte{Column: clause.Column{Table: idempotencyTable, Name: "created_at"}, Value: s.cutoff()},
		}},
	}).Create(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return row.toPort(), nil
	}
	held, err := s.Get(ctx, record.Key)
	if err != nil {
		return nil, err
	}
	if held == nil {
		return nil, fmt.Errorf("idempotency key %q vanished after conflict", record.Key)
	}
	if !held.Same(record) {
		return held, ports.ErrIdempotencyConflict
	}
	return held, nil
}

func (s *IdempotencyStore) cutoff() time.Time {
	return s.now().UTC().Add(-s.retention)
}

type keyRow struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	OrderID     string    `gorm:"column:order_id;size:64"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
}

func (keyRow) TableName() string { return idempotencyTable }

func (r keyRow) toPort() *ports.IdempotencyRecord {
	return &ports.IdempotencyRecord{
		Key:         r.Key,
		RequestHash: r.RequestHash,
		OrderID:     r.OrderID,
		CreatedAt:   r.CreatedAt,
	}
}
