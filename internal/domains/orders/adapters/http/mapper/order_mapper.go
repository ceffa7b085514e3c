package mapper

import (
	"strings"
	"time"

	orderdomain "github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
)

// OrderItem is the wire shape of one order line.
type OrderItem struct {
	ID       string  `json:"id" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
	Quantity int     `json:"quantity" validate:"min=1"`
	Image    string  `json:"image,omitempty"`
}

// Order is the wire shape returned to storefront and admin clients.
type Order struct {
	ID               string      `json:"id"`
	UserID           string      `json:"userId"`
	UserEmail        string      `json:"userEmail"`
	UserName         string      `json:"userName"`
	UserPhone        string      `json:"userPhone"`
	UserAddress      string      `json:"userAddress"`
	Items            []OrderItem `json:"items"`
	Total            float64     `json:"total"`
	Status           string      `json:"status"`
	PaymentMethod    string      `json:"paymentMethod"`
	PaymentStatus    string      `json:"paymentStatus"`
	PaymentReference string      `json:"paymentReference,omitempty"`
	DeliveryMethod   string      `json:"deliveryMethod"`
	DeliveryAddress  string      `json:"deliveryAddress,omitempty"`
	Message          string      `json:"message,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// OrderStats is the wire shape of the admin dashboard counters.
type OrderStats struct {
	TotalOrders     int     `json:"totalOrders"`
	PendingOrders   int     `json:"pendingOrders"`
	CompletedOrders int     `json:"completedOrders"`
	TotalRevenue    float64 `json:"totalRevenue"`
	TodayOrders     int     `json:"todayOrders"`
	ThisWeekOrders  int     `json:"thisWeekOrders"`
	ThisMonthOrders int     `json:"thisMonthOrders"`
}

// PaymentOutcome is the gateway result a client reports back.
type PaymentOutcome struct {
	Status    string `json:"status" validate:"required,oneof=pending paid failed"`
	Reference string `json:"reference,omitempty"`
}

// CheckoutRequest is the body of POST /v1/orders. Owner fields come from the session.
type CheckoutRequest struct {
	UserName        string          `json:"userName" validate:"required"`
	UserPhone       string          `json:"userPhone"`
	UserAddress     string          `json:"userAddress"`
	Items           []OrderItem     `json:"items" validate:"required,min=1,dive"`
	Total           float64         `json:"total" validate:"gte=0"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required,oneof=paystack bank_transfer pickup"`
	DeliveryMethod  string          `json:"deliveryMethod" validate:"required,oneof=pickup delivery"`
	DeliveryAddress string          `json:"deliveryAddress" validate:"required_if=DeliveryMethod delivery"`
	Message         string          `json:"message"`
	Payment         *PaymentOutcome `json:"payment,omitempty"`
}

// CheckoutResponse reports the created (or replayed) order id.
type CheckoutResponse struct {
	OrderID  string `json:"orderId"`
	Replayed bool   `json:"replayed"`
}

// StatusUpdate is the body of PATCH /v1/admin/orders/:id/status.
type StatusUpdate struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled"`
}

// PaymentUpdate is the body of the payment status endpoints.
type PaymentUpdate struct {
	PaymentStatus    string  `json:"paymentStatus" validate:"required,oneof=pending paid failed"`
	PaymentReference *string `json:"paymentReference,omitempty"`
	// Amount is the charged amount in kobo, checked against the order total when present.
	Amount *int64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
}

// PaymentInit is what a client needs to open the gateway popup.
type PaymentInit struct {
	OrderID   string `json:"orderId"`
	Email     string `json:"email"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// ToCheckoutRequest converts the transport payload into a checkout for the signed-in user.
func ToCheckoutRequest(req CheckoutRequest, userID, email, idempotencyKey string) orderports.CheckoutRequest {
	draft := orderdomain.Draft{
		UserID:          userID,
		UserEmail:       email,
		UserName:        strings.TrimSpace(req.UserName),
		UserPhone:       strings.TrimSpace(req.UserPhone),
		UserAddress:     strings.TrimSpace(req.UserAddress),
		Items:           ToDomainItems(req.Items),
		Total:           req.Total,
		PaymentMethod:   orderdomain.PaymentMethod(req.PaymentMethod),
		DeliveryMethod:  orderdomain.DeliveryMethod(req.DeliveryMethod),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		Message:         strings.TrimSpace(req.Message),
	}
	out := orderports.CheckoutRequest{Draft: draft, IdempotencyKey: strings.TrimSpace(idempotencyKey)}
	if req.Payment != nil {
		out.Payment = &orderports.PaymentOutcome{
			Status:    orderdomain.PaymentStatus(req.Payment.Status),
			Reference: strings.TrimSpace(req.Payment.Reference),
		}
	}
	return out
}

func ToDomainItems(items []OrderItem) []orderdomain.OrderItem {
	out := make([]orderdomain.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, orderdomain.OrderItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return out
}

// FromDomainOrder converts a domain order to the transport representation.
func FromDomainOrder(order *orderdomain.Order) Order {
	if order == nil {
		return Order{}
	}
	items := make([]OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return Order{
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

// FromDomainOrders never returns nil so empty views encode as [].
func FromDomainOrders(orders []*orderdomain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromDomainOrder(o))
	}
	return out
}

func FromDomainStats(stats orderdomain.OrderStats) OrderStats {
	return OrderStats{
		TotalOrders:     stats.TotalOrders,
		PendingOrders:   stats.PendingOrders,
		CompletedOrders: stats.CompletedOrders,
		TotalRevenue:    stats.TotalRevenue,
		TodayOrders:     stats.TodayOrders,
		ThisWeekOrders:  stats.ThisWeekOrders,
		ThisMonthOrders: stats.ThisMonthOrders,
	}
}
