package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-orders-server/internal/shared/randid"
)

// Status enumerates order progression.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus tracks settlement independently of the order status.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	PaymentMethodPaystack     PaymentMethod = "paystack"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodPickup       PaymentMethod = "pickup"
)

// DeliveryMethod is how the order reaches the customer.
type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryDelivery DeliveryMethod = "delivery"
)

// OrderIDPrefix marks identifiers minted by this service.
const OrderIDPrefix = "AGF"

var (
	ErrInvalidStatus          = errors.New("order status is invalid")
	ErrInvalidPaymentStatus   = errors.New("payment status is invalid")
	ErrInvalidPaymentMethod   = errors.New("payment method is invalid")
	ErrInvalidDeliveryMethod  = errors.New("delivery method is invalid")
	ErrMissingDeliveryAddress = errors.New("delivery address is required for delivery orders")
	ErrMissingOwner           = errors.New("order owner is required")
	ErrNoItems                = errors.New("order must contain at least one item")
	ErrInvalidQuantity        = errors.New("item quantity must be at least one")
	ErrInvalidPrice           = errors.New("item price must not be negative")
	ErrInvalidTotal           = errors.New("order total must not be negative")
)

// OrderItem is one line of an order, frozen at checkout.
type OrderItem struct {
	ID       string
	Name     string
	Price    float64
	Quantity int
	Image    string
}

// Order models a customer purchase.
type Order struct {
	ID               string
	UserID           string
	UserEmail        string
	UserName         string
	UserPhone        string
	UserAddress      string
	Items            []OrderItem
	Total            float64
	Status           Status
	PaymentMethod    PaymentMethod
	PaymentStatus    PaymentStatus
	PaymentReference string
	DeliveryMethod   DeliveryMethod
	DeliveryAddress  string
	Message          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Draft carries everything a new order needs except identity and timestamps.
type Draft struct {
	UserID           string
	UserEmail        string
	UserName         string
	UserPhone        string
	UserAddress      string
	Items            []OrderItem
	Total            float64
	Status           Status
	PaymentMethod    PaymentMethod
	PaymentStatus    PaymentStatus
	PaymentReference string
	DeliveryMethod   DeliveryMethod
	DeliveryAddress  string
	Message          string
}

// NewOrderID mints "AGF-<unix ms>-<6 uppercase base36>".
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", OrderIDPrefix, now.UnixMilli(), randid.UpperBase36(6))
}

// NewOrder validates the draft and stamps it with id and creation time.
// Empty status fields default to pending. The total is taken as given.
func NewOrder(id string, draft Draft, now time.Time) (*Order, error) {
	order := &Order{
		ID:               id,
		UserID:           strings.TrimSpace(draft.UserID),
		UserEmail:        draft.UserEmail,
		UserName:         draft.UserName,
		UserPhone:        draft.UserPhone,
		UserAddress:      draft.UserAddress,
		Items:            cloneItems(draft.Items),
		Total:            draft.Total,
		Status:           draft.Status,
		PaymentMethod:    draft.PaymentMethod,
		PaymentStatus:    draft.PaymentStatus,
		PaymentReference: draft.PaymentReference,
		DeliveryMethod:   draft.DeliveryMethod,
		DeliveryAddress:  draft.DeliveryAddress,
		Message:          draft.Message,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if order.Status == "" {
		order.Status = StatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = PaymentPending
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate enforces field-level invariants on the aggregate.
func (o *Order) Validate() error {
	if o.UserID == "" {
		return ErrMissingOwner
	}
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range o.Items {
		if item.Quantity < 1 {
			return ErrInvalidQuantity
		}
		if item.Price < 0 {
			return ErrInvalidPrice
		}
	}
	if o.Total < 0 {
		return ErrInvalidTotal
	}
	if !o.Status.Valid() {
		return ErrInvalidStatus
	}
	if !o.PaymentStatus.Valid() {
		return ErrInvalidPaymentStatus
	}
	if !o.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	if !o.DeliveryMethod.Valid() {
		return ErrInvalidDeliveryMethod
	}
	if o.DeliveryMethod == DeliveryDelivery && strings.TrimSpace(o.DeliveryAddress) == "" {
		return ErrMissingDeliveryAddress
	}
	return nil
}

// Clone returns a deep copy safe to hand to another goroutine.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = cloneItems(o.Items)
	return &clone
}

// ItemsTotal sums price×quantity in decimal arithmetic, rounded to two places.
func ItemsTotal(items []OrderItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	total, _ := sum.Round(2).Float64()
	return total
}

// TotalMatchesItems reports whether total equals the items sum to the cent.
func TotalMatchesItems(total float64, items []OrderItem) bool {
	return decimal.NewFromFloat(total).Round(2).Equal(decimal.NewFromFloat(ItemsTotal(items)))
}

// Valid reports whether s is one of the six order states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// Valid reports whether p is a known payment state.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	default:
		return false
	}
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPaystack, PaymentMethodBankTransfer, PaymentMethodPickup:
		return true
	default:
		return false
	}
}

func (m DeliveryMethod) Valid() bool {
	return m == DeliveryPickup || m == DeliveryDelivery
}

// Statuses lists order states in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
}

// PaymentStatuses lists payment states.
func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed}
}

// FormatStatus renders a status value for display: "bank_transfer" becomes "Bank transfer".
func FormatStatus(value string) string {
	if value == "" {
		return ""
	}
	return strings.ToUpper(value[:1]) + strings.Replace(value[1:], "_", " ", 1)
}

func cloneItems(items []OrderItem) []OrderItem {
	if items == nil {
		return nil
	}
	out := make([]OrderItem, len(items))
	copy(out, items)
	return out
}
