package migrations

import (
	"time"

	"gorm.io/gorm"
)

// OrdersChannel is the NOTIFY channel fired for every insert or update on orders.
const OrdersChannel = "orders_changed"

// Run applies the orders schema and the change-notification trigger.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := db.AutoMigrate(
		&orderRecord{},
		&idempotencyRecord{},
	); err != nil {
		return err
	}
	for _, stmt := range notifyTrigger {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

var notifyTrigger = []string{
	`CREATE OR REPLACE FUNCTION notify_orders_changed() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + OrdersChannel + `', NEW.id);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS orders_changed_notify ON orders`,
	`CREATE TRIGGER orders_changed_notify AFTER INSERT OR UPDATE ON orders
	FOR EACH ROW EXECUTE FUNCTION notify_orders_changed()`,
}

// Order schema mirrors the orders Postgres adapter.
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

// Idempotency schema mirrors the checkout idempotency store.
type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	OrderID     string    `gorm:"column:order_id;size:64"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
}

func (idempotencyRecord) TableName() string { return "order_idempotency_keys" }
