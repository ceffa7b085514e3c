package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/live"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-orders-server/internal/platform/migrations"
)

var _ ports.DocumentStore = (*DocumentStore)(nil)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	listenerPingInterval = 90 * time.Second
)

// DocumentStore persists orders in PostgreSQL using GORM. Live queries are
// refreshed from LISTEN/NOTIFY once Listen runs, and from local writes otherwise.
type DocumentStore struct {
	db        *gorm.DB
	hub       *live.Hub
	logger    *slog.Logger
	listening atomic.Bool
}

// NewDocumentStore wires a PostgreSQL-backed store. Caller manages DB lifecycle
// and runs migrations.Run beforehand.
func NewDocumentStore(db *gorm.DB, logger *slog.Logger) *DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DocumentStore{db: db, logger: logger}
	s.hub = live.NewHub(s.load, logger)
	return s
}

// orderRecord maps the order aggregate to a relational row. Items are a jsonb document.
type orderRecord struct {
	ID               string       `gorm:"primaryKey;column:id;size:64"`
	UserID           string       `gorm:"column:user_id;size:128;index"`
	UserEmail        string       `gorm:"column:user_email"`
	UserName         string       `gorm:"column:user_name"`
	UserPhone        string       `gorm:"column:user_phone"`
	UserAddress      string       `gorm:"column:user_address"`
	Items            []itemRecord `gorm:"column:items;type:jsonb;serializer:json"`
	Total            float64      `gorm:"column:total"`
	Status           string       `gorm:"column:status;type:varchar(32);index"`
	PaymentMethod    string       `gorm:"column:payment_method;type:varchar(32)"`
	PaymentStatus    string       `gorm:"column:payment_status;type:varchar(32);index"`
	PaymentReference string       `gorm:"column:payment_reference"`
	DeliveryMethod   string       `gorm:"column:delivery_method;type:varchar(32)"`
	DeliveryAddress  string       `gorm:"column:delivery_address"`
	Message          string       `gorm:"column:message"`
	CreatedAt        time.Time    `gorm:"column:created_at;index;autoCreateTime:false"`
	UpdatedAt        time.Time    `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (orderRecord) TableName() string { return "orders" }

type itemRecord struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image,omitempty"`
}

// Insert creates the row, returning ports.ErrAlreadyExists on a duplicate id.
func (s *DocumentStore) Insert(ctx context.Context, order *domain.Order) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if order == nil {
		return errors.New("order is nil")
	}
	record := toRecord(order)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ports.ErrAlreadyExists
		}
		return err
	}
	s.changed()
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

// Update writes only the patched columns.
func (s *DocumentStore) Update(ctx context.Context, id string, patch domain.Patch) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	values := map[string]any{}
	if patch.Status != nil {
		values["status"] = string(*patch.Status)
	}
	if patch.PaymentStatus != nil {
		values["payment_status"] = string(*patch.PaymentStatus)
	}
	if patch.PaymentReference != nil {
		values["payment_reference"] = *patch.PaymentReference
	}
	if !patch.UpdatedAt.IsZero() {
		values["updated_at"] = patch.UpdatedAt
	}
	if len(values) == 0 {
		return s.exists(ctx, id)
	}
	result := s.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	s.changed()
	return nil
}

// Watch opens a live query.
func (s *DocumentStore) Watch(ctx context.Context, query ports.Query, onSnapshot ports.SnapshotFunc, onError ports.ErrorFunc) (ports.Subscription, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, query, onSnapshot, onError)
}

// Listen subscribes to the orders NOTIFY channel and refreshes live queries
// on every notification until ctx is cancelled. It returns once the channel
// is being listened on.
func (s *DocumentStore) Listen(ctx context.Context, dsn string) error {
	listener := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.logger.Warn("postgres listener event", slog.Int("event", int(ev)), slog.String("error", err.Error()))
		}
	})
	if err := listener.Listen(migrations.OrdersChannel); err != nil {
		_ = listener.Close()
		return fmt.Errorf("listen %s: %w", migrations.OrdersChannel, err)
	}
	s.listening.Store(true)
	go s.consume(ctx, listener)
	return nil
}

func (s *DocumentStore) consume(ctx context.Context, listener *pq.Listener) {
	defer func() {
		s.listening.Store(false)
		_ = listener.Close()
	}()
	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			// A nil notification follows a reconnect; changes may have been missed.
			if n != nil {
				s.logger.Debug("order changed", slog.String("order_id", n.Extra))
			}
			s.hub.Notify()
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				s.logger.Warn("postgres listener ping failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Close ends every live query.
func (s *DocumentStore) Close() {
	s.hub.Close()
}

func (s *DocumentStore) changed() {
	if !s.listening.Load() {
		s.hub.Notify()
	}
}

func (s *DocumentStore) exists(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (s *DocumentStore) load(ctx context.Context, query ports.Query) ([]*domain.Order, error) {
	tx := s.db.WithContext(ctx).Model(&orderRecord{})
	if query.UserID != "" {
		tx = tx.Where("user_id = ?", query.UserID)
	}
	if query.Newest {
		tx = tx.Order("created_at DESC")
	}
	var records []orderRecord
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, nil
}

func (s *DocumentStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres order store not configured")
	}
	return nil
}

func toRecord(order *domain.Order) orderRecord {
	items := make([]itemRecord, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemRecord{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return orderRecord{
		ID:               order.ID,
		UserID:           order.UserID,
		UserEmail:        order.UserEmail,
		UserName:         order.UserName,
		UserPhone:        order.UserPhone,
		UserAddress:      order.UserAddress,
		Items:            items,
		Total:            order.Total,
		Status:           string(order.Status),
		PaymentMethod:    string(order.PaymentMethod),
		PaymentStatus:    string(order.PaymentStatus),
		PaymentReference: order.PaymentReference,
		DeliveryMethod:   string(order.DeliveryMethod),
		DeliveryAddress:  order.DeliveryAddress,
		Message:          order.Message,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

func (r orderRecord) toDomain() *domain.Order {
	items := make([]domain.OrderItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, domain.OrderItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return &domain.Order{
		ID:               r.ID,
		UserID:           r.UserID,
		UserEmail:        r.UserEmail,
		UserName:         r.UserName,
		UserPhone:        r.UserPhone,
		UserAddress:      r.UserAddress,
		Items:            items,
		Total:            r.Total,
		Status:           domain.Status(r.Status),
		PaymentMethod:    domain.PaymentMethod(r.PaymentMethod),
		PaymentStatus:    domain.PaymentStatus(r.PaymentStatus),
		PaymentReference: r.PaymentReference,
		DeliveryMethod:   domain.DeliveryMethod(r.DeliveryMethod),
		DeliveryAddress:  r.DeliveryAddress,
		Message:          r.Message,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
